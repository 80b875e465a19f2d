package completions

import "errors"

var (
	ErrNotFound            = errors.New("completion not found")
	ErrForbidden           = errors.New("not allowed to access this completion")
	ErrGigNotCompletable   = errors.New("gig must be in progress or completed")
	ErrNoWorkers           = errors.New("at least one worker is required")
	ErrDuplicateWorker     = errors.New("worker listed more than once")
	ErrWorkerNotHired      = errors.New("worker has no accepted application for this gig")
	ErrInvalidTimeEntry    = errors.New("time entry must have a valid date and hours between 0 and 24")
	ErrNegativeAdjustment  = errors.New("overtime, bonus and deductions must not be negative")
	ErrInvalidTransition   = errors.New("completion status does not allow this action")
	ErrNoPaymentIntent     = errors.New("payment has not been started")
	ErrPaymentIncomplete   = errors.New("payment has not succeeded")
	ErrDisputed            = errors.New("completion is disputed")
	ErrTransfersSucceeded  = errors.New("refund not allowed after a transfer succeeded")
	ErrDisputeReason       = errors.New("dispute reason is required")
	ErrInvalidResolution   = errors.New("resolution must be release or refund")
	ErrDistributionRunning = errors.New("distribution already in progress or finished")
)
