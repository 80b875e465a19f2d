package notifications

const (
	TypeNewGigMatch         = "new_gig_match"
	TypeApplicationReceived = "application_received"
	TypeApplicationAccepted = "application_accepted"
	TypeApplicationRejected = "application_rejected"
	TypeGigCancelled        = "gig_cancelled"
	TypePaymentSucceeded    = "payment_succeeded"
	TypePaymentFailed       = "payment_failed"
	TypePaymentReceived     = "payment_received"
	TypePaymentRefunded     = "payment_refunded"
	TypePayoutPartial       = "payout_partial"
	TypeCompletionDisputed  = "completion_disputed"

	// EventNotification is the websocket frame event for a new notification.
	EventNotification = "notification"

	RoleUser     = "user"
	RoleEmployer = "employer"
)
