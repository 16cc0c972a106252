package metrics

import "time"

// Event and operation names recorded by the checkout components.
const (
	EventFetchSucceeded  = "fetch_succeeded"
	EventFetchFailed     = "fetch_failed"
	EventFetchDiscarded  = "fetch_discarded"
	EventSubmitSucceeded = "submit_succeeded"
	EventSubmitFailed    = "submit_failed"
	EventSubmitRejected  = "submit_rejected"

	OpFetchAssets = "fetch_assets"
	OpSubmit      = "submit"
)

type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}
