// Package metrics provides hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
type Recorder interface {
	// HTTP
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)

	// Accounts
	IncUserRegistered()
	IncLogin(result string) // "success", "failure", "totp_required", "suspended"

	// Money movement
	IncDonation(amount, fee int64)
	IncDeposit(amount int64)
	IncWithdrawal(status string) // "requested", "approved", "rejected"

	// Streamer applications
	IncApplication(status string) // "submitted", "approved", "rejected", "withdrawn"

	// Notification pipeline
	IncNotificationPublished(status string) // "success" or "dropped"
	IncNotificationProcessed(status string) // "success", "duplicate", "mailed", "failed", "dead_lettered"
	SetNotificationQueueDepth(depth int64)

	// Alert webhook delivery
	IncAlertDelivery(status string) // "success", "retry", "exhausted"
	ObserveAlertDeliveryDuration(duration time.Duration)
	SetAlertQueueDepth(depth int64)

	// Caches
	IncCacheLookup(cache string, hit bool)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
