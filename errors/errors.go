package errors

import "fmt"

// Validation errors. Checked before any write, the request is rejected whole.
var (
	ErrMissingField   = fmt.Errorf("required field is missing")
	ErrEmptyContent   = fmt.Errorf("message content is empty")
	ErrContentTooLong = fmt.Errorf("message content exceeds the allowed length")
	ErrSelfAddressed  = fmt.Errorf("sender and receiver are the same user")
	ErrInvalidType    = fmt.Errorf("unknown notification type")
)

// Lookup errors.
var (
	ErrMessageNotFound      = fmt.Errorf("message not found")
	ErrNotificationNotFound = fmt.Errorf("notification not found")
)

// Runtime errors. ErrDelivery stays inside the dispatcher: a push failure
// to one session is logged and never surfaced to the sender.
var (
	ErrDelivery    = fmt.Errorf("push delivery failed")
	ErrWorkerPanic = fmt.Errorf("worker panic")
)
