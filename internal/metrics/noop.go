package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) ObserveHTTPRequest(string, string, int, time.Duration) {}
func (n *NoopRecorder) IncUserRegistered()                                   {}
func (n *NoopRecorder) IncLogin(string)                                      {}
func (n *NoopRecorder) IncDonation(int64, int64)                             {}
func (n *NoopRecorder) IncDeposit(int64)                                     {}
func (n *NoopRecorder) IncWithdrawal(string)                                 {}
func (n *NoopRecorder) IncApplication(string)                                {}
func (n *NoopRecorder) IncNotificationPublished(string)                      {}
func (n *NoopRecorder) IncNotificationProcessed(string)                      {}
func (n *NoopRecorder) SetNotificationQueueDepth(int64)                      {}
func (n *NoopRecorder) IncAlertDelivery(string)                              {}
func (n *NoopRecorder) ObserveAlertDeliveryDuration(time.Duration)           {}
func (n *NoopRecorder) SetAlertQueueDepth(int64)                             {}
func (n *NoopRecorder) IncCacheLookup(string, bool)                          {}
