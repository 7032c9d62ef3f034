package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Queue асинхронно передаёт события следующему Notifier из одной горутины,
// чтобы команды ядра не ждали сетевых вызовов.
type Queue struct {
	next   Notifier
	events chan Event
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func NewQueue(next Notifier, size int, logger *zap.Logger) *Queue {
	if size < 1 {
		size = 1
	}
	return &Queue{
		next:   next,
		events: make(chan Event, size),
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Notify ставит событие в очередь. При переполнении или после Close событие отбрасывается.
func (q *Queue) Notify(_ context.Context, event Event) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		q.logger.Warn("Notification queue is closed, dropping event",
			zap.String("kind", string(event.Kind)),
			zap.String("session_id", event.SessionID))
		return nil
	}

	select {
	case q.events <- event:
	default:
		q.logger.Warn("Notification queue is full, dropping event",
			zap.String("kind", string(event.Kind)),
			zap.String("session_id", event.SessionID))
	}
	return nil
}

// Run обрабатывает очередь до закрытия. Оставшиеся события доставляются перед выходом.
func (q *Queue) Run(ctx context.Context) {
	defer close(q.done)

	for event := range q.events {
		if err := q.next.Notify(ctx, event); err != nil {
			q.logger.Error("Failed to deliver notification",
				zap.String("kind", string(event.Kind)),
				zap.Error(err))
		}
	}
}

// Close прекращает приём событий и ждёт завершения Run
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.events)
	}
	q.mu.Unlock()

	<-q.done
}
