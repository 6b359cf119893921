package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	applogger "Jyotish/pkg/logger"
)

// MessageHandler handles messages from a specific topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// Consumer fetches from one reader per registered topic and hands messages to a worker
// pool. Offsets are committed after a successful handle, or after the message was
// parked on the DLQ topic.
type Consumer struct {
	cfg      *ConsumerConfig
	log      *applogger.Logger
	readers  map[string]*kafka.Reader
	handlers map[string]MessageHandler
	hook     ConsumerHook
	msgs     chan kafka.Message
	dlq      *kafka.Writer

	partMu    sync.Mutex
	partLocks map[string]*sync.Mutex

	ctx      context.Context
	cancel   context.CancelFunc
	fetchWG  sync.WaitGroup
	workWG   sync.WaitGroup
	startMu  sync.Mutex
	started  bool
	stopOnce sync.Once
}

func NewConsumer(log *applogger.Logger, opts ...ConsumerOption) (*Consumer, error) {
	cfg := defaultConsumerConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	if log == nil {
		log = applogger.Nop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Consumer{
		cfg:       cfg,
		log:       log,
		readers:   make(map[string]*kafka.Reader),
		handlers:  make(map[string]MessageHandler),
		hook:      NoopHook{},
		msgs:      make(chan kafka.Message, cfg.BufferSize),
		partLocks: make(map[string]*sync.Mutex),
		ctx:       ctx,
		cancel:    cancel,
	}
	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Topic: cfg.DLQTopic, Balancer: &kafka.LeastBytes{}}
	}

	initMetrics()
	return c, nil
}

// RegisterHandler must be called before Start. A second handler for the same topic is ignored.
func (c *Consumer) RegisterHandler(handler MessageHandler) {
	topic := handler.Topic()
	if _, ok := c.handlers[topic]; ok {
		c.log.Warn("kafka handler already registered", applogger.String("topic", topic))
		return
	}
	c.handlers[topic] = handler
}

// WithConsumerHook replaces the lifecycle hook. Nil is ignored.
func (c *Consumer) WithConsumerHook(h ConsumerHook) {
	if h != nil {
		c.hook = h
	}
}

func (c *Consumer) Start() error {
	c.startMu.Lock()
	defer c.startMu.Unlock()
	if c.started {
		return fmt.Errorf("consumer already started")
	}
	if len(c.handlers) == 0 {
		return fmt.Errorf("no handlers registered")
	}
	c.started = true

	for topic := range c.handlers {
		r := kafka.NewReader(kafka.ReaderConfig{
			Brokers:     c.cfg.Brokers,
			Topic:       topic,
			GroupID:     c.cfg.GroupID,
			StartOffset: c.cfg.StartOffset,
			MinBytes:    c.cfg.MinBytes,
			MaxBytes:    c.cfg.MaxBytes,
		})
		c.readers[topic] = r
		c.fetchWG.Add(1)
		go c.fetch(topic, r)
	}
	for i := 0; i < c.cfg.WorkerCount; i++ {
		c.workWG.Add(1)
		go c.worker()
	}

	c.log.Info("kafka consumer started",
		applogger.String("group", c.cfg.GroupID),
		applogger.Int("topics", len(c.readers)),
		applogger.Int("workers", c.cfg.WorkerCount))
	return nil
}

// Stop cancels fetching and handling, then closes readers. Messages not yet committed
// are redelivered to the group later.
func (c *Consumer) Stop(ctx context.Context) error {
	var stopErr error
	c.stopOnce.Do(func() {
		c.cancel()

		done := make(chan struct{})
		go func() {
			c.fetchWG.Wait()
			c.workWG.Wait()
			close(done)
		}()
		select {
		case <-ctx.Done():
			stopErr = fmt.Errorf("timeout waiting for consumer to stop: %w", ctx.Err())
		case <-done:
		}

		for topic, r := range c.readers {
			if err := r.Close(); err != nil {
				c.log.Warn("kafka reader close", applogger.String("topic", topic), applogger.Error(err))
			}
		}
		if c.dlq != nil {
			if err := c.dlq.Close(); err != nil {
				c.log.Warn("kafka dlq writer close", applogger.Error(err))
			}
		}
		if stopErr == nil {
			c.log.Info("kafka consumer stopped")
		}
	})
	return stopErr
}

func (c *Consumer) fetch(topic string, r *kafka.Reader) {
	defer c.fetchWG.Done()

	for {
		ctx, cancel := context.WithTimeout(c.ctx, c.cfg.ReadTimeout)
		m, err := r.FetchMessage(ctx)
		cancel()
		if c.ctx.Err() != nil {
			return
		}
		if err != nil {
			if !errors.Is(err, context.DeadlineExceeded) {
				c.log.Error("kafka fetch", applogger.String("topic", topic), applogger.Error(err))
				c.sleep(time.Second)
			}
			continue
		}

		select {
		case c.msgs <- m:
			consumerQueueDepth.WithLabelValues(topic).Set(float64(len(c.msgs)))
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Consumer) worker() {
	defer c.workWG.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case m := <-c.msgs:
			c.process(m)
		}
	}
}

func (c *Consumer) process(m kafka.Message) {
	handler, ok := c.handlers[m.Topic]
	if !ok {
		return
	}

	// one in-flight message per partition
	pl := c.partitionLock(m.Topic, m.Partition)
	pl.Lock()
	defer pl.Unlock()

	start := time.Now()
	attempts, err := c.handleWithRetry(handler, m)
	consumerLatency.WithLabelValues(m.Topic).Observe(time.Since(start).Seconds())

	if err != nil && c.ctx.Err() != nil {
		return
	}

	result := "ok"
	if err != nil {
		result = "error"
		c.log.Error("kafka message failed",
			applogger.String("topic", m.Topic),
			applogger.Int("partition", m.Partition),
			applogger.Int64("offset", m.Offset),
			applogger.Int("attempts", attempts),
			applogger.Error(err))
		if c.dlq != nil {
			if dlqErr := c.toDLQ(m, err); dlqErr != nil {
				c.log.Error("kafka dlq write", applogger.String("dlq", c.cfg.DLQTopic), applogger.Error(dlqErr))
			} else {
				result = "dlq"
			}
		}
	}
	consumerHandled.WithLabelValues(m.Topic, result).Inc()

	if result != "error" {
		c.commit(m)
	}
}

// handleWithRetry runs the hook and the handler. Hook rejections are final; handler
// errors are retried up to RetryMax times with jittered exponential backoff.
func (c *Consumer) handleWithRetry(h MessageHandler, m kafka.Message) (int, error) {
	attempts := 0
	for {
		attempts++
		hctx, km, data, err := c.hook.BeforeHandle(c.ctx, m.Topic, m, m.Value)
		if err != nil {
			c.hook.OnError(c.ctx, m.Topic, m, m.Value, err)
			return attempts, err
		}

		err = safeHandle(h, hctx, data)
		c.hook.AfterHandle(hctx, m.Topic, km, data, err)
		if err == nil {
			return attempts, nil
		}
		c.hook.OnError(hctx, m.Topic, km, data, err)

		if attempts > c.cfg.RetryMax || c.ctx.Err() != nil {
			return attempts, err
		}
		if !c.sleep(backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, attempts)) {
			return attempts, err
		}
	}
}

func safeHandle(h MessageHandler, ctx context.Context, data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.Handle(ctx, data)
}

func (c *Consumer) toDLQ(m kafka.Message, cause error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.dlq.WriteMessages(ctx, kafka.Message{
		Key:   m.Key,
		Value: m.Value,
		Time:  time.Now().UTC(),
		Headers: append(m.Headers,
			kafka.Header{Key: "source_topic", Value: []byte(m.Topic)},
			kafka.Header{Key: "error", Value: []byte(cause.Error())},
		),
	})
}

func (c *Consumer) commit(m kafka.Message) {
	r := c.readers[m.Topic]
	if r == nil {
		return
	}
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = r.CommitMessages(ctx, m)
		cancel()
		if err == nil {
			return
		}
		time.Sleep(backoffWithJitter(50*time.Millisecond, 500*time.Millisecond, attempt))
	}
	c.log.Error("kafka commit", applogger.String("topic", m.Topic), applogger.Int64("offset", m.Offset), applogger.Error(err))
}

func (c *Consumer) partitionLock(topic string, partition int) *sync.Mutex {
	key := fmt.Sprintf("%s/%d", topic, partition)
	c.partMu.Lock()
	defer c.partMu.Unlock()
	l, ok := c.partLocks[key]
	if !ok {
		l = &sync.Mutex{}
		c.partLocks[key] = l
	}
	return l
}

// sleep waits d or until the consumer stops; it reports whether the full wait elapsed.
func (c *Consumer) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-c.ctx.Done():
		return false
	}
}

func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	if attempt < 1 {
		attempt = 1
	}
	exp := max
	if attempt < 32 {
		if d := min << uint(attempt-1); d > 0 && d < max {
			exp = d
		}
	}
	// up to 50% jitter
	if half := int64(exp) / 2; half > 0 {
		exp -= time.Duration(rand.Int63n(half))
	}
	return exp
}
