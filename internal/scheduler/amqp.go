package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"captioner/internal/config"
	"captioner/internal/logging"
)

const (
	defaultQueueName = "captioner.jobs"
	reconnectDelay   = 5 * time.Second
	publishTimeout   = 10 * time.Second
)

// AMQP schedules jobs through a durable RabbitMQ queue.
type AMQP struct {
	url     string
	queue   string
	workers int
	logger  *slog.Logger
	dial    func(url string) (*amqp.Connection, error)

	mu        sync.Mutex
	conn      *amqp.Connection
	publisher *amqp.Channel
	consumer  *amqp.Channel
	running   bool
	stopped   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	active    atomic.Int64
	processed atomic.Uint64
	failed    atomic.Uint64
}

// NewAMQP creates an AMQP scheduler. The connection is opened lazily.
func NewAMQP(url, queue string, workers int, logger *slog.Logger) *AMQP {
	if workers <= 0 {
		workers = 1
	}
	queue = strings.TrimSpace(queue)
	if queue == "" {
		queue = defaultQueueName
	}
	return &AMQP{
		url:     strings.TrimSpace(url),
		queue:   queue,
		workers: workers,
		logger:  logging.NewComponentLogger(logger, "scheduler"),
		dial:    amqp.Dial,
	}
}

// Enqueue publishes jobID as a persistent message.
func (a *AMQP) Enqueue(ctx context.Context, jobID string) error {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return errors.New("scheduler: job id required")
	}
	ch, err := a.publisherChannel()
	if err != nil {
		return err
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	err = ch.PublishWithContext(pubCtx, "", a.queue, false, false, amqp.Publishing{
		ContentType:  "text/plain",
		DeliveryMode: amqp.Persistent,
		MessageId:    jobID,
		Timestamp:    time.Now().UTC(),
		Body:         []byte(jobID),
	})
	if err != nil {
		return fmt.Errorf("scheduler: publish job %s: %w", jobID, err)
	}
	return nil
}

// Start opens a consumer and dispatches deliveries to handler, reconnecting
// when the broker drops the channel.
func (a *AMQP) Start(ctx context.Context, handler Handler) error {
	if handler == nil {
		return errors.New("scheduler: handler required")
	}
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return ErrStopped
	}
	if a.running {
		a.mu.Unlock()
		return errors.New("scheduler already running")
	}
	a.running = true
	a.mu.Unlock()

	deliveries, err := a.consume()
	if err != nil {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()

	a.wg.Add(1)
	go a.supervise(runCtx, handler, deliveries)
	a.logger.Info("scheduler started",
		logging.String("backend", config.SchedulerAMQP),
		logging.String("queue", a.queue),
		logging.Int("workers", a.workers),
	)
	return nil
}

// Stop cancels consumers, waits for in-flight handlers, and closes the
// connection. Unacknowledged deliveries return to the queue.
func (a *AMQP) Stop() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.stopped = true
	a.running = false
	cancel := a.cancel
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	a.wg.Wait()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.closeLocked()
}

// Stats reports counters. Queue depth is owned by the broker and reported as 0.
func (a *AMQP) Stats() Stats {
	return Stats{
		Backend:   config.SchedulerAMQP,
		Running:   int(a.active.Load()),
		Processed: a.processed.Load(),
		Failed:    a.failed.Load(),
	}
}

func (a *AMQP) supervise(ctx context.Context, handler Handler, deliveries <-chan amqp.Delivery) {
	defer a.wg.Done()
	for {
		a.drain(ctx, handler, deliveries)
		if ctx.Err() != nil {
			return
		}
		logging.WarnWithContext(a.logger, "amqp delivery channel closed; reconnecting", "amqp_channel_closed",
			logging.String("queue", a.queue),
			logging.String(logging.FieldErrorHint, "check broker availability"),
		)
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
			}
			next, err := a.consume()
			if err == nil {
				deliveries = next
				a.logger.Info("amqp consumer reconnected", logging.String("queue", a.queue))
				break
			}
			logging.WarnWithContext(a.logger, "amqp reconnect failed", "amqp_reconnect_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "queued jobs wait until the broker is reachable"),
			)
		}
	}
}

// drain runs workers until the delivery channel closes or ctx ends.
func (a *AMQP) drain(ctx context.Context, handler Handler, deliveries <-chan amqp.Delivery) {
	var wg sync.WaitGroup
	wg.Add(a.workers)
	for i := 0; i < a.workers; i++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case d, ok := <-deliveries:
					if !ok {
						return
					}
					a.handle(ctx, handler, d)
				}
			}
		}()
	}
	wg.Wait()
}

// handle acknowledges after the handler returns. A failed first delivery is
// requeued once; a failed redelivery is dropped so a poison message cannot
// spin forever.
func (a *AMQP) handle(ctx context.Context, handler Handler, d amqp.Delivery) {
	a.active.Add(1)
	defer a.active.Add(-1)

	jobID := strings.TrimSpace(string(d.Body))
	if jobID == "" {
		logging.WarnWithContext(a.logger, "discarding empty amqp message", "amqp_empty_message")
		_ = d.Reject(false)
		return
	}

	err := safeCall(ctx, handler, jobID)
	a.processed.Add(1)
	switch {
	case err == nil:
		if ackErr := d.Ack(false); ackErr != nil {
			logging.WarnWithContext(a.logger, "amqp ack failed", "amqp_ack_failed",
				logging.String(logging.FieldJobID, jobID),
				logging.Error(ackErr),
				logging.String(logging.FieldImpact, "the job may be delivered again"),
			)
		}
	case errors.Is(err, context.Canceled):
		_ = d.Nack(false, true)
	default:
		a.failed.Add(1)
		requeue := !d.Redelivered
		logging.WarnWithContext(a.logger, "job handler failed", "scheduler_handler_failed",
			logging.String(logging.FieldJobID, jobID),
			logging.Bool("requeue", requeue),
			logging.Error(err),
		)
		_ = d.Nack(false, requeue)
	}
}

func (a *AMQP) connectionLocked() (*amqp.Connection, error) {
	if a.conn != nil && !a.conn.IsClosed() {
		return a.conn, nil
	}
	if a.url == "" {
		return nil, errors.New("scheduler: amqp url not configured")
	}
	conn, err := a.dial(a.url)
	if err != nil {
		return nil, fmt.Errorf("scheduler: connect to broker: %w", err)
	}
	a.conn = conn
	a.publisher = nil
	a.consumer = nil
	return conn, nil
}

func (a *AMQP) openChannelLocked() (*amqp.Channel, error) {
	conn, err := a.connectionLocked()
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("scheduler: open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(a.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("scheduler: declare queue %s: %w", a.queue, err)
	}
	return ch, nil
}

func (a *AMQP) publisherChannel() (*amqp.Channel, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return nil, ErrStopped
	}
	if a.publisher != nil && !a.publisher.IsClosed() {
		return a.publisher, nil
	}
	ch, err := a.openChannelLocked()
	if err != nil {
		return nil, err
	}
	a.publisher = ch
	return ch, nil
}

func (a *AMQP) consume() (<-chan amqp.Delivery, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.consumer != nil && !a.consumer.IsClosed() {
		_ = a.consumer.Close()
	}
	ch, err := a.openChannelLocked()
	if err != nil {
		return nil, err
	}
	if err := ch.Qos(a.workers, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("scheduler: set qos: %w", err)
	}
	deliveries, err := ch.Consume(a.queue, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("scheduler: consume %s: %w", a.queue, err)
	}
	a.consumer = ch
	return deliveries, nil
}

func (a *AMQP) closeLocked() {
	if a.consumer != nil {
		_ = a.consumer.Close()
		a.consumer = nil
	}
	if a.publisher != nil {
		_ = a.publisher.Close()
		a.publisher = nil
	}
	if a.conn != nil {
		_ = a.conn.Close()
		a.conn = nil
	}
}
