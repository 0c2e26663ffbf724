package kafka

import (
	"encoding/json"
	"fmt"
)

// MustMarshal: untuk payload yang kita bentuk sendiri; gagal marshal berarti
// bug tipe, bukan kondisi runtime.
func MustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// UnmarshalEnvelope decode value pesan ke envelope event v1.
func UnmarshalEnvelope(b []byte, out any) error {
	return json.Unmarshal(b, out)
}

// UnwrapPayload decode payload mentah envelope ke tipe event konkretnya.
func UnwrapPayload[T any](payload json.RawMessage) (T, error) {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return t, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}
