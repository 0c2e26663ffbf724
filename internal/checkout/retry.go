package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// IsTxConflict: deadlock / serialization failure dari Postgres.
// 40001 = serialization_failure, 40P01 = deadlock_detected.
func IsTxConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Retry menjalankan fn maksimal maxAttempts kali; retry hanya untuk error yang
// lolos retryable, dengan jeda backoff(attempt) di antaranya. Error terakhir
// diteruskan apa adanya kalau attempt habis / error tidak retryable.
func Retry(ctx context.Context, log zerolog.Logger, maxAttempts int, backoff func(attempt int) time.Duration, retryable func(error) bool, fn func(ctx context.Context) error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var err error
	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		if err == nil || !retryable(err) || attempt >= maxAttempts {
			return err
		}
		log.Warn().Int("attempt", attempt).Int("max", maxAttempts).Err(err).
			Msg("transaction conflict, retrying")
		select {
		case <-time.After(backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ConflictBackoff: jeda linier base * attempt.
func ConflictBackoff(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration { return base * time.Duration(attempt) }
}
