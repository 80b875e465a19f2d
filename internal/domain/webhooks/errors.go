package webhooks

import "errors"

var ErrAlreadyProcessed = errors.New("webhook event already processed")
