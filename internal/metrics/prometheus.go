package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder on a dedicated registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	httpDuration    *prometheus.HistogramVec
	usersRegistered prometheus.Counter
	logins          *prometheus.CounterVec
	donations       prometheus.Counter
	donationVolume  prometheus.Counter
	feesCollected   prometheus.Counter
	deposits        prometheus.Counter
	depositVolume   prometheus.Counter
	withdrawals     *prometheus.CounterVec
	applications    *prometheus.CounterVec
	notifPublished  *prometheus.CounterVec
	notifProcessed  *prometheus.CounterVec
	notifQueueDepth prometheus.Gauge
	alertDeliveries *prometheus.CounterVec
	alertDuration   prometheus.Histogram
	alertQueueDepth prometheus.Gauge
	cacheLookups    *prometheus.CounterVec
}

// NewPrometheus registers all collectors, plus Go runtime and process
// collectors, on a new registry.
func NewPrometheus() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	p := &PrometheusRecorder{
		registry: reg,
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "xscan_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		usersRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "xscan_users_registered_total",
			Help: "Total number of user registrations",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xscan_logins_total",
			Help: "Login attempts by result",
		}, []string{"result"}),
		donations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "xscan_donations_total",
			Help: "Total number of donations",
		}),
		donationVolume: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "xscan_donation_volume_minor_units_total",
			Help: "Sum of donation amounts in minor currency units",
		}),
		feesCollected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "xscan_fees_collected_minor_units_total",
			Help: "Sum of platform fees in minor currency units",
		}),
		deposits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "xscan_deposits_total",
			Help: "Total number of wallet deposits",
		}),
		depositVolume: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "xscan_deposit_volume_minor_units_total",
			Help: "Sum of deposits in minor currency units",
		}),
		withdrawals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xscan_withdrawals_total",
			Help: "Withdrawal events by status",
		}, []string{"status"}),
		applications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xscan_streamer_applications_total",
			Help: "Streamer application events by status",
		}, []string{"status"}),
		notifPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xscan_notifications_published_total",
			Help: "Notification events published by status",
		}, []string{"status"}),
		notifProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xscan_notifications_processed_total",
			Help: "Notification events processed by status",
		}, []string{"status"}),
		notifQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "xscan_notification_queue_depth",
			Help: "Length of the notification stream",
		}),
		alertDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xscan_alert_deliveries_total",
			Help: "Alert webhook delivery attempts by outcome",
		}, []string{"status"}),
		alertDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "xscan_alert_delivery_duration_seconds",
			Help:    "Duration of alert webhook requests in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		alertQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "xscan_alert_queue_depth",
			Help: "Alert deliveries waiting to be sent",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xscan_cache_lookups_total",
			Help: "Cache lookups by cache and result",
		}, []string{"cache", "result"}),
	}

	reg.MustRegister(
		p.httpDuration, p.usersRegistered, p.logins,
		p.donations, p.donationVolume, p.feesCollected,
		p.deposits, p.depositVolume, p.withdrawals, p.applications,
		p.notifPublished, p.notifProcessed, p.notifQueueDepth,
		p.alertDeliveries, p.alertDuration, p.alertQueueDepth, p.cacheLookups,
	)
	return p
}

// Registry returns the underlying registry.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the exposition format for this registry.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *PrometheusRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	p.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

func (p *PrometheusRecorder) IncUserRegistered() { p.usersRegistered.Inc() }

func (p *PrometheusRecorder) IncLogin(result string) { p.logins.WithLabelValues(result).Inc() }

func (p *PrometheusRecorder) IncDonation(amount, fee int64) {
	p.donations.Inc()
	p.donationVolume.Add(float64(amount))
	p.feesCollected.Add(float64(fee))
}

func (p *PrometheusRecorder) IncDeposit(amount int64) {
	p.deposits.Inc()
	p.depositVolume.Add(float64(amount))
}

func (p *PrometheusRecorder) IncWithdrawal(status string) { p.withdrawals.WithLabelValues(status).Inc() }

func (p *PrometheusRecorder) IncApplication(status string) { p.applications.WithLabelValues(status).Inc() }

func (p *PrometheusRecorder) IncNotificationPublished(status string) {
	p.notifPublished.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) IncNotificationProcessed(status string) {
	p.notifProcessed.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) SetNotificationQueueDepth(depth int64) {
	p.notifQueueDepth.Set(float64(depth))
}

func (p *PrometheusRecorder) IncAlertDelivery(status string) {
	p.alertDeliveries.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) ObserveAlertDeliveryDuration(duration time.Duration) {
	p.alertDuration.Observe(duration.Seconds())
}

func (p *PrometheusRecorder) SetAlertQueueDepth(depth int64) {
	p.alertQueueDepth.Set(float64(depth))
}

func (p *PrometheusRecorder) IncCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	p.cacheLookups.WithLabelValues(cache, result).Inc()
}
