package checkout

type OrderStatus string

const (
	OrderPrePayment OrderStatus = "pre_payment"
	OrderPaid       OrderStatus = "paid"
	OrderCancelled  OrderStatus = "cancelled"
)

// Terminal: tidak boleh ada mutasi stok lagi untuk order ini.
func (s OrderStatus) Terminal() bool {
	return s == OrderPaid || s == OrderCancelled
}

var validNext = map[OrderStatus]map[OrderStatus]bool{
	OrderPrePayment: {OrderPaid: true, OrderCancelled: true},
	OrderPaid:       {},
	OrderCancelled:  {},
}

func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

type PaymentStatus string

const (
	PaymentSuccess PaymentStatus = "success"
	PaymentFailure PaymentStatus = "failure"
)

func (s PaymentStatus) Valid() bool {
	return s == PaymentSuccess || s == PaymentFailure
}
