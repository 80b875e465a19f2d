package payments

import (
	"github.com/tidwall/gjson"
)

const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
	EventAccountUpdated   = "account.updated"
	EventTransferReversed = "transfer.reversed"
	EventChargeRefunded   = "charge.refunded"
)

// Event is a verified webhook event. Object holds the raw JSON of data.object.
type Event struct {
	ID     string
	Type   string
	Object []byte
}

func (e Event) ObjectID() string {
	return e.String("id")
}

// String reads a gjson path from the event object, e.g. "metadata.completion_id".
func (e Event) String(path string) string {
	return gjson.GetBytes(e.Object, path).String()
}

func (e Event) Bool(path string) bool {
	return gjson.GetBytes(e.Object, path).Bool()
}

func (e Event) Int(path string) int64 {
	return gjson.GetBytes(e.Object, path).Int()
}
