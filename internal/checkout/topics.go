package checkout

const (
	TopicHoldCreated  = "checkout.hold.created"
	TopicOrderCreated = "checkout.order.created"
	TopicOrderSettled = "checkout.order.settled"
	TopicHoldReleased = "checkout.hold.released"

	// notifikasi payment masuk lewat topic ini (selain webhook HTTP)
	TopicPaymentNotification = "checkout.payment.notification"
)

// Partition key = hold_id (atau order_id), supaya event untuk satu entitas
// maintain urutan.
func PartitionKey(id string) []byte { return []byte(id) }
