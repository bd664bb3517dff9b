// Package metrics records link and payment events. The Recorder interface
// keeps the store, orchestrator and progression driver decoupled from the
// metrics backend.
package metrics

import "time"

type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}

// Event names recorded across the service.
const (
	EventLinkCreated     = "link_created"
	EventLinkUpdated     = "link_updated"
	EventStatusAdvanced  = "status_advanced"
	EventPaymentApproved = "payment_approved"
	EventPaymentDeposit  = "payment_deposited"
	EventPaymentFailed   = "payment_failed"
)
