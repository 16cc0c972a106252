package clients

import "errors"

// Reasons attached to broadcast and confirmation failures.
const (
	ReasonBroadcastFailed       = "broadcast_failed"
	ReasonConfirmationTimedOut  = "transaction_confirmation_timed_out"
	ReasonSignatureStatusFailed = "signature_status_query_failed"
)

// errPending marks a signature that is known but not yet finalized.
var errPending = errors.New("transaction not finalized yet")
