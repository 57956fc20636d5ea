package notification

import (
	"context"

	"golang.org/x/exp/slog"
)

// Notifier внешний приемник уведомлений. Отправка fire-and-forget:
// ошибки доставки не влияют на вызывающее доменное действие.
type Notifier interface {
	Notify(ctx context.Context, recipient, message string)
}

// LogNotifier пишет уведомления в лог. Используется как реализация
// по умолчанию, пока не подключен внешний шлюз (email/SMS/push).
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier создает лог-нотификатор
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With("component", "notifier")}
}

// Notify отправляет уведомление
func (n *LogNotifier) Notify(_ context.Context, recipient, message string) {
	n.log.Info("notification", "recipient", recipient, "message", message)
}
