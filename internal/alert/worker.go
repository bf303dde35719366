package alert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/xscan/xscan/internal/metrics"
	"github.com/xscan/xscan/internal/model"
)

const (
	// DefaultBatchSize is the number of deliveries to process per poll.
	DefaultBatchSize = 50
	// DefaultPollInterval is the time between polling for due deliveries.
	DefaultPollInterval = 5 * time.Second
	// DefaultMetricsInterval is how often to update queue depth metrics.
	DefaultMetricsInterval = 10 * time.Second
	// claimLease keeps a claimed row away from other workers while it is sent.
	claimLease = 2 * time.Minute
)

// Store is the persistence the worker needs.
type Store interface {
	ClaimDue(ctx context.Context, limit int, lease time.Duration) ([]*model.AlertDelivery, error)
	GetTarget(ctx context.Context, streamerID string) (*Target, error)
	MarkSuccess(ctx context.Context, id string, httpStatus int) error
	MarkFailure(ctx context.Context, id string, httpStatus *int, errMsg string, nextRetryAt time.Time, exhausted bool) error
	QueueDepth(ctx context.Context) (int64, error)
}

// Decrypter opens stored webhook secrets.
type Decrypter interface {
	Decrypt(ciphertext string) (string, error)
}

// Worker sends due alert deliveries.
type Worker struct {
	store           Store
	secrets         Decrypter
	client          *http.Client
	logger          *slog.Logger
	metrics         metrics.Recorder
	allowInsecure   bool
	batchSize       int
	pollInterval    time.Duration
	metricsInterval time.Duration
	lastMetrics     time.Time
	now             func() time.Time

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewWorker creates a new alert delivery worker.
func NewWorker(store Store, secrets Decrypter, allowInsecure bool, logger *slog.Logger, recorder metrics.Recorder) *Worker {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Worker{
		store:           store,
		secrets:         secrets,
		client:          NewHTTPClient(allowInsecure),
		logger:          logger.With("component", "alert.worker"),
		metrics:         recorder,
		allowInsecure:   allowInsecure,
		batchSize:       DefaultBatchSize,
		pollInterval:    DefaultPollInterval,
		metricsInterval: DefaultMetricsInterval,
		now:             time.Now,
	}
}

// Run starts the worker loop. Blocks until context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return errors.New("worker already started")
	}
	w.started = true
	w.done = make(chan struct{})
	ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	defer close(w.done)

	w.logger.Info("alert worker started")

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("alert worker stopping")
			return nil
		case <-ticker.C:
			if err := w.processOnce(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				w.logger.Error("process error", "error", err)
			}
		}
	}
}

// Shutdown stops polling and waits for the current batch.
// It implements server.ShutdownFunc.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	cancel := w.cancel
	done := w.done
	w.mu.Unlock()

	cancel()
	select {
	case <-done:
		w.logger.Info("alert worker shutdown complete")
		return nil
	case <-ctx.Done():
		w.logger.Warn("alert worker shutdown timed out")
		return ctx.Err()
	}
}

// processOnce claims and sends one batch of due deliveries.
func (w *Worker) processOnce(ctx context.Context) error {
	w.maybeUpdateQueueDepth(ctx)

	deliveries, err := w.store.ClaimDue(ctx, w.batchSize, claimLease)
	if err != nil {
		return fmt.Errorf("claim due deliveries: %w", err)
	}

	for _, delivery := range deliveries {
		if err := w.deliver(ctx, delivery); err != nil {
			w.logger.Warn("delivery bookkeeping failed",
				"delivery_id", delivery.ID,
				"error", err,
			)
		}
	}
	return nil
}

// deliver sends one alert and records the outcome.
func (w *Worker) deliver(ctx context.Context, delivery *model.AlertDelivery) error {
	target, err := w.store.GetTarget(ctx, delivery.StreamerID)
	if errors.Is(err, ErrTargetNotFound) {
		return w.exhaust(ctx, delivery, "webhook not configured")
	}
	if err != nil {
		return err
	}

	secret, err := w.secrets.Decrypt(target.SecretEnc)
	if err != nil {
		return w.exhaust(ctx, delivery, "webhook secret unreadable")
	}
	if err := ValidateTargetURL(ctx, target.URL, w.allowInsecure); err != nil {
		return w.exhaust(ctx, delivery, "webhook url rejected: "+err.Error())
	}

	payload := []byte(delivery.PayloadJSON)
	timestamp := w.now().Unix()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.URL, bytes.NewReader(payload))
	if err != nil {
		return w.exhaust(ctx, delivery, "build request: "+err.Error())
	}
	setAlertHeaders(req, GenerateSignature(secret, timestamp, payload), strconv.FormatInt(timestamp, 10), delivery.ID)

	start := time.Now()
	resp, err := w.client.Do(req)
	duration := time.Since(start)
	w.metrics.ObserveAlertDeliveryDuration(duration)

	if err != nil {
		return w.retry(ctx, delivery, nil, err.Error())
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		w.logger.Info("alert delivered",
			"delivery_id", delivery.ID,
			"target_host", ExtractHost(target.URL),
			"http_status", resp.StatusCode,
			"duration_ms", duration.Milliseconds(),
		)
		w.metrics.IncAlertDelivery("success")
		return w.store.MarkSuccess(ctx, delivery.ID, resp.StatusCode)
	}

	status := resp.StatusCode
	return w.retry(ctx, delivery, &status, fmt.Sprintf("HTTP %d", status))
}

// retry records a failed attempt, exhausting the delivery when no attempts remain.
func (w *Worker) retry(ctx context.Context, delivery *model.AlertDelivery, httpStatus *int, errMsg string) error {
	attempts := delivery.AttemptCount + 1
	exhausted := Exhausted(attempts, delivery.MaxAttempts)

	outcome := "retry"
	if exhausted {
		outcome = "exhausted"
	}
	w.logger.Warn("alert delivery failed",
		"delivery_id", delivery.ID,
		"attempt", attempts,
		"exhausted", exhausted,
		"error", errMsg,
	)
	w.metrics.IncAlertDelivery(outcome)

	return w.store.MarkFailure(ctx, delivery.ID, httpStatus, errMsg, w.now().Add(RetryDelay(attempts)), exhausted)
}

func (w *Worker) exhaust(ctx context.Context, delivery *model.AlertDelivery, reason string) error {
	w.logger.Warn("alert delivery dropped", "delivery_id", delivery.ID, "reason", reason)
	w.metrics.IncAlertDelivery("exhausted")
	return w.store.MarkFailure(ctx, delivery.ID, nil, reason, w.now(), true)
}

func (w *Worker) maybeUpdateQueueDepth(ctx context.Context) {
	if !w.lastMetrics.IsZero() && time.Since(w.lastMetrics) < w.metricsInterval {
		return
	}
	w.lastMetrics = time.Now()

	depth, err := w.store.QueueDepth(ctx)
	if err != nil {
		w.logger.Warn("failed to get alert queue depth", "error", err)
		return
	}
	w.metrics.SetAlertQueueDepth(depth)
}

// SetBatchSize overrides the default batch size.
func (w *Worker) SetBatchSize(size int) {
	if size > 0 {
		w.batchSize = size
	}
}

// SetPollInterval overrides the default poll interval.
func (w *Worker) SetPollInterval(interval time.Duration) {
	if interval > 0 {
		w.pollInterval = interval
	}
}
