package completions

import "time"

const (
	StatusPendingPayment = "pending_payment"
	StatusPaid           = "paid"
	StatusDistributing   = "distributing"
	StatusCompleted      = "completed"
	StatusPartiallyPaid  = "partially_paid"
	StatusDisputed       = "disputed"
	StatusRefunded       = "refunded"

	PaymentUnpaid     = "unpaid"
	PaymentProcessing = "processing"
	PaymentSucceeded  = "succeeded"
	PaymentFailed     = "failed"
	PaymentRefunded   = "refunded"

	WorkerPending = "pending"
	WorkerPaid    = "paid"
	WorkerFailed  = "failed"

	ResolveRelease = "release"
	ResolveRefund  = "refund"
)

type Completion struct {
	ID              string          `json:"id"`
	GigID           string          `json:"gigId"`
	GigTitle        string          `json:"gigTitle,omitempty"`
	EmployerID      string          `json:"employerId"`
	Workers         []WorkerPayment `json:"workers"`
	TotalAmount     float64         `json:"totalAmount"`
	ServiceFee      float64         `json:"serviceFee"`
	Tax             float64         `json:"tax"`
	TotalCharge     float64         `json:"totalCharge"`
	Currency        string          `json:"currency"`
	PaymentIntentID string          `json:"paymentIntentId,omitempty"`
	PaymentStatus   string          `json:"paymentStatus"`
	Status          string          `json:"status"`
	DisputeReason   string          `json:"disputeReason,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
	DistributedAt   *time.Time      `json:"distributedAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

type TimeEntry struct {
	Date  string  `json:"date"`
	Hours float64 `json:"hours"`
}

type WorkerPayment struct {
	ID              string      `json:"id"`
	UserID          string      `json:"userId"`
	WorkerName      string      `json:"workerName,omitempty"`
	TimeEntries     []TimeEntry `json:"timeEntries"`
	Overtime        float64     `json:"overtime"`
	Bonus           float64     `json:"bonus"`
	Deductions      float64     `json:"deductions"`
	Amount          float64     `json:"amount"`
	Status          string      `json:"status"`
	TransferID      string      `json:"transferId,omitempty"`
	FailureReason   string      `json:"failureReason,omitempty"`
	PaidAt          *time.Time  `json:"paidAt,omitempty"`
	Warnings        []string    `json:"warnings,omitempty"`
	StripeAccountID string      `json:"-"`
	PayoutsEnabled  bool        `json:"-"`
	// TransferKey is the idempotency key of the transfer in flight; it is reused until Stripe declines it.
	TransferKey string `json:"-"`
}

// HasWorker reports whether userID is paid through this completion.
func (c Completion) HasWorker(userID string) bool {
	for _, w := range c.Workers {
		if w.UserID == userID {
			return true
		}
	}
	return false
}

// AnyTransferSucceeded is true once money has left the platform balance for any worker.
func (c Completion) AnyTransferSucceeded() bool {
	for _, w := range c.Workers {
		if w.Status == WorkerPaid && w.TransferID != "" {
			return true
		}
	}
	return false
}

type WorkerInput struct {
	UserID      string      `json:"userId"`
	TimeEntries []TimeEntry `json:"timeEntries"`
	Overtime    float64     `json:"overtime"`
	Bonus       float64     `json:"bonus"`
	Deductions  float64     `json:"deductions"`
}

type CreateInput struct {
	Workers []WorkerInput `json:"workers"`
	Notes   string        `json:"notes"`
}

type PaymentSession struct {
	CompletionID    string  `json:"completionId"`
	PaymentIntentID string  `json:"paymentIntentId"`
	ClientSecret    string  `json:"clientSecret"`
	Amount          float64 `json:"amount"`
	AmountCents     int64   `json:"amountCents"`
	Currency        string  `json:"currency"`
	Status          string  `json:"status"`
}

type DistributionResult struct {
	CompletionID string `json:"completionId"`
	Status       string `json:"status"`
	Paid         int    `json:"paid"`
	Failed       int    `json:"failed"`
	Unrecorded   int    `json:"unrecorded,omitempty"`
}

type Filter struct {
	EmployerID string
	Status     string
}
