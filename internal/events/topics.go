package events

// Topic constants for domain events emitted by the platform.
const (
	TopicRentalConfirmed  = "rental.confirmed"
	TopicRentalCancelled  = "rental.cancelled"
	TopicRentalClosed     = "rental.closed"
	TopicPaymentRecorded  = "payment.recorded"
	TopicPaymentAllocated = "payment.allocated"
	TopicChargeWrittenOff = "charge.written_off"
)

// DefaultTopics returns the canonical list of topics that support notifications.
func DefaultTopics() []string {
	return []string{
		TopicRentalConfirmed,
		TopicRentalCancelled,
		TopicRentalClosed,
		TopicPaymentRecorded,
		TopicPaymentAllocated,
		TopicChargeWrittenOff,
	}
}
