// Package notify доставляет уведомления о событиях бронирования участникам.
// Отображение уведомлений находится вне ядра, здесь только порт и адаптеры.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

type EventKind string

const (
	EventBookingRequested  EventKind = "booking_requested"
	EventBookingApproved   EventKind = "booking_approved"
	EventBookingRejected   EventKind = "booking_rejected"
	EventSessionCancelled  EventKind = "session_cancelled"
	EventChangeProposed    EventKind = "change_proposed"
	EventChangeAccepted    EventKind = "change_accepted"
	EventChangeRejected    EventKind = "change_rejected"
	EventSessionCompleted  EventKind = "session_completed"
	EventFeedbackSubmitted EventKind = "feedback_submitted"
	EventTeachingStarted   EventKind = "teaching_period_started"
	EventTeachingEnded     EventKind = "teaching_period_ended"
	EventRequestRejected   EventKind = "request_rejected"
	EventRequestSubmitted  EventKind = "request_submitted"
	EventSlotOpenedForYou  EventKind = "slot_opened_for_student"
)

// Заголовки уведомлений для пользователей
var titles = map[EventKind]string{
	EventBookingRequested:  "📩 Yêu cầu đặt lịch mới",
	EventBookingApproved:   "✅ Buổi học đã được xác nhận",
	EventBookingRejected:   "🚫 Yêu cầu đặt lịch bị từ chối",
	EventSessionCancelled:  "❌ Buổi học đã bị hủy",
	EventChangeProposed:    "🔁 Đề xuất thay đổi buổi học",
	EventChangeAccepted:    "✔️ Thay đổi đã được chấp nhận",
	EventChangeRejected:    "↩️ Thay đổi bị từ chối",
	EventSessionCompleted:  "🎓 Buổi học đã hoàn thành",
	EventFeedbackSubmitted: "⭐ Có đánh giá mới",
	EventTeachingStarted:   "🤝 Bắt đầu giai đoạn giảng dạy",
	EventTeachingEnded:     "🏁 Kết thúc giai đoạn giảng dạy",
	EventRequestRejected:   "🚫 Yêu cầu bị từ chối",
	EventRequestSubmitted:  "📝 Có yêu cầu mới",
	EventSlotOpenedForYou:  "📅 Gia sư đã mở lịch cho bạn",
}

// Event событие, о котором нужно сообщить получателям
type Event struct {
	Kind         EventKind
	RecipientIDs []string
	SessionID    string
	SlotID       string
	PeriodID     string
	RequestID    string
	Details      string
	OccurredAt   time.Time
}

// Text форматирует текст уведомления
func (e Event) Text() string {
	title, ok := titles[e.Kind]
	if !ok {
		title = string(e.Kind)
	}
	if e.Details == "" {
		return title
	}
	return fmt.Sprintf("%s\n%s", title, e.Details)
}

// Notifier доставляет событие получателям
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Nop ничего не отправляет
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }

// LogNotifier пишет события в лог, используется когда Telegram не настроен
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, event Event) error {
	n.logger.Info("Notification",
		zap.String("kind", string(event.Kind)),
		zap.String("recipients", strings.Join(event.RecipientIDs, ",")),
		zap.String("session_id", event.SessionID),
		zap.String("slot_id", event.SlotID),
		zap.String("period_id", event.PeriodID),
		zap.String("request_id", event.RequestID),
	)
	return nil
}
