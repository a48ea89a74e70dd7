package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/nudge/internal/domain"
	"github.com/phrazzld/nudge/internal/redact"
)

// DispatcherConfig holds the dispatcher's queue and worker settings.
type DispatcherConfig struct {
	// QueueSize bounds the number of pushes waiting for a worker.
	QueueSize int

	// WorkerCount is the number of concurrent senders. Zero or negative
	// values fall back to 1.
	WorkerCount int

	// SendTimeout bounds a single transport call.
	SendTimeout time.Duration
}

// DefaultDispatcherConfig returns a DispatcherConfig with reasonable defaults.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		QueueSize:   256,
		WorkerCount: 2,
		SendTimeout: 5 * time.Second,
	}
}

// Dispatcher is a Channel that queues pushes and sends them from a pool of
// worker goroutines, so Push never waits on the transport.
type Dispatcher struct {
	transport   Transport
	queue       *Queue
	workerCount int
	sendTimeout time.Duration
	wg          sync.WaitGroup
	startOnce   sync.Once
	stopOnce    sync.Once
	logger      *slog.Logger
}

// NewDispatcher creates a dispatcher that sends through transport.
// Call Start before pushing and Stop on shutdown.
func NewDispatcher(transport Transport, cfg DispatcherConfig, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "delivery_dispatcher"))

	workerCount := cfg.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
		logger.Warn("invalid worker count specified, using default",
			"specified_count", cfg.WorkerCount,
			"default_count", 1)
	}
	sendTimeout := cfg.SendTimeout
	if sendTimeout <= 0 {
		sendTimeout = DefaultDispatcherConfig().SendTimeout
	}

	return &Dispatcher{
		transport:   transport,
		queue:       NewQueue(cfg.QueueSize, logger),
		workerCount: workerCount,
		sendTimeout: sendTimeout,
		logger:      logger,
	}
}

// Start launches the workers. Calling it more than once has no effect.
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		d.logger.Info("starting delivery workers", "worker_count", d.workerCount)
		for i := 0; i < d.workerCount; i++ {
			d.wg.Add(1)
			go d.worker(i)
		}
	})
}

// Stop closes the queue and waits for the workers to send everything that
// was already queued.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.queue.Close()
		d.wg.Wait()
		d.logger.Info("delivery workers stopped")
	})
}

// Push queues n for delivery to address. A full or closed queue drops the
// push with a warning.
func (d *Dispatcher) Push(ctx context.Context, address string, n *domain.Notification) {
	payload := NewPayload(n)
	if err := d.queue.Enqueue(address, payload); err != nil {
		d.logger.WarnContext(ctx, "dropping notification push",
			"notification_id", payload.ID,
			"address", redact.Address(address),
			"error", err)
	}
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()

	d.logger.Debug("starting worker", "worker_id", id)
	for env := range d.queue.channel() {
		d.send(env, id)
	}
	d.logger.Debug("queue drained, stopping worker", "worker_id", id)
}

func (d *Dispatcher) send(env envelope, workerID int) {
	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()

	err := d.deliver(ctx, env)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrTransientDelivery, err)
		d.logger.Warn("notification push failed",
			"notification_id", env.payload.ID,
			"address", redact.Address(env.address),
			"worker_id", workerID,
			"error", redact.Error(err))
		return
	}
	d.logger.Debug("notification pushed",
		"notification_id", env.payload.ID,
		"worker_id", workerID)
}

// deliver hands one push to the transport. A panicking transport is reported
// as an error so the worker keeps draining the queue.
func (d *Dispatcher) deliver(ctx context.Context, env envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transport panicked: %v", r)
		}
	}()
	return d.transport.Send(ctx, env.address, Topic, env.payload)
}
