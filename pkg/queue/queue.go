package queue

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Shubhamjha-sj/signal/pkg/metrics"
)

// Handler consumes decoded messages
type Handler interface {
	Handle(ctx context.Context, msg Message) error
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, msg Message) error

// Handle calls f
func (f HandlerFunc) Handle(ctx context.Context, msg Message) error { return f(ctx, msg) }

// Publisher hands messages to a backend
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// Inline dispatches each message to the handler on its own goroutine,
// detached from the publishing request's cancellation
type Inline struct {
	mu      sync.RWMutex
	handler Handler
	log     *logrus.Entry
	wg      sync.WaitGroup
}

// NewInline creates an in-process publisher; SetHandler must be called before Publish
func NewInline(log *logrus.Logger) *Inline {
	return &Inline{log: log.WithField("component", "queue")}
}

// SetHandler installs the consumer. It exists because the handler usually
// depends on a publisher itself.
func (q *Inline) SetHandler(h Handler) {
	q.mu.Lock()
	q.handler = h
	q.mu.Unlock()
}

// Publish schedules msg for asynchronous handling
func (q *Inline) Publish(ctx context.Context, msg Message) error {
	q.mu.RLock()
	h := q.handler
	q.mu.RUnlock()
	if h == nil {
		metrics.QueueMessages.WithLabelValues(string(msg.Kind()), "dropped").Inc()
		q.log.WithField("kind", msg.Kind()).Warn("No handler installed, dropping message")
		return nil
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		if err := h.Handle(context.WithoutCancel(ctx), msg); err != nil {
			metrics.QueueMessages.WithLabelValues(string(msg.Kind()), "error").Inc()
			q.log.WithError(err).WithField("kind", msg.Kind()).Error("Message handling failed")
			return
		}
		metrics.QueueMessages.WithLabelValues(string(msg.Kind()), "ok").Inc()
	}()
	return nil
}

// Wait blocks until every published message has been handled
func (q *Inline) Wait() {
	q.wg.Wait()
}

// Close waits for in-flight messages
func (q *Inline) Close() error {
	q.wg.Wait()
	return nil
}
