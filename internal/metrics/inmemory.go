package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	HTTPRequests           uint64
	UsersRegistered        uint64
	Logins                 map[string]uint64
	Donations              uint64
	DonationVolume         int64
	FeesCollected          int64
	Deposits               uint64
	Withdrawals            map[string]uint64
	Applications           map[string]uint64
	NotificationsPublished map[string]uint64
	NotificationsProcessed map[string]uint64
	AlertDeliveries        map[string]uint64
	CacheHits              uint64
	CacheMisses            uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	httpRequests    uint64
	usersRegistered uint64
	donations       uint64
	donationVolume  int64
	feesCollected   int64
	deposits        uint64
	cacheHits       uint64
	cacheMisses     uint64

	mu       sync.Mutex
	labelled map[string]map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{labelled: make(map[string]map[string]uint64)}
}

func (m *InMemoryRecorder) inc(name, label string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.labelled[name] == nil {
		m.labelled[name] = make(map[string]uint64)
	}
	m.labelled[name][label]++
}

func (m *InMemoryRecorder) copyOf(name string) map[string]uint64 {
	out := make(map[string]uint64, len(m.labelled[name]))
	for k, v := range m.labelled[name] {
		out[k] = v
	}
	return out
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		HTTPRequests:           atomic.LoadUint64(&m.httpRequests),
		UsersRegistered:        atomic.LoadUint64(&m.usersRegistered),
		Logins:                 m.copyOf("login"),
		Donations:              atomic.LoadUint64(&m.donations),
		DonationVolume:         atomic.LoadInt64(&m.donationVolume),
		FeesCollected:          atomic.LoadInt64(&m.feesCollected),
		Deposits:               atomic.LoadUint64(&m.deposits),
		Withdrawals:            m.copyOf("withdrawal"),
		Applications:           m.copyOf("application"),
		NotificationsPublished: m.copyOf("notification_published"),
		NotificationsProcessed: m.copyOf("notification_processed"),
		AlertDeliveries:        m.copyOf("alert_delivery"),
		CacheHits:              atomic.LoadUint64(&m.cacheHits),
		CacheMisses:            atomic.LoadUint64(&m.cacheMisses),
	}
}

// ObserveHTTPRequest counts requests.
func (m *InMemoryRecorder) ObserveHTTPRequest(string, string, int, time.Duration) {
	atomic.AddUint64(&m.httpRequests, 1)
}

// IncUserRegistered counts registrations.
func (m *InMemoryRecorder) IncUserRegistered() {
	atomic.AddUint64(&m.usersRegistered, 1)
}

// IncLogin counts login attempts by result.
func (m *InMemoryRecorder) IncLogin(result string) {
	m.inc("login", result)
}

// IncDonation counts a donation and its volume.
func (m *InMemoryRecorder) IncDonation(amount, fee int64) {
	atomic.AddUint64(&m.donations, 1)
	atomic.AddInt64(&m.donationVolume, amount)
	atomic.AddInt64(&m.feesCollected, fee)
}

// IncDeposit counts deposits.
func (m *InMemoryRecorder) IncDeposit(int64) {
	atomic.AddUint64(&m.deposits, 1)
}

// IncWithdrawal counts withdrawal events by status.
func (m *InMemoryRecorder) IncWithdrawal(status string) {
	m.inc("withdrawal", status)
}

// IncApplication counts application events by status.
func (m *InMemoryRecorder) IncApplication(status string) {
	m.inc("application", status)
}

// IncNotificationPublished counts published notification events.
func (m *InMemoryRecorder) IncNotificationPublished(status string) {
	m.inc("notification_published", status)
}

// IncNotificationProcessed counts processed notification events.
func (m *InMemoryRecorder) IncNotificationProcessed(status string) {
	m.inc("notification_processed", status)
}

// SetNotificationQueueDepth is ignored in memory.
func (m *InMemoryRecorder) SetNotificationQueueDepth(int64) {}

// IncAlertDelivery counts alert delivery outcomes.
func (m *InMemoryRecorder) IncAlertDelivery(status string) {
	m.inc("alert_delivery", status)
}

// ObserveAlertDeliveryDuration is ignored in memory.
func (m *InMemoryRecorder) ObserveAlertDeliveryDuration(time.Duration) {}

// SetAlertQueueDepth is ignored in memory.
func (m *InMemoryRecorder) SetAlertQueueDepth(int64) {}

// IncCacheLookup counts cache hits and misses.
func (m *InMemoryRecorder) IncCacheLookup(_ string, hit bool) {
	if hit {
		atomic.AddUint64(&m.cacheHits, 1)
		return
	}
	atomic.AddUint64(&m.cacheMisses, 1)
}
