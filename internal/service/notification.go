package service

import (
	"context"

	"github.com/vogiaan1904/ticketbottle-reservation/pkg/logger"
)

const (
	TemplateWaitlistAvailable = "waitlist_available"
	TemplateOrderConfirmed    = "order_confirmed"
	TemplateOrderRefunded     = "order_refunded"
)

// NotificationPort delivers a templated message to a holder. Delivery is
// best-effort: callers log failures and never roll back on them.
type NotificationPort interface {
	Send(ctx context.Context, holderID, template string, data map[string]any) error
}

type logNotifier struct {
	l logger.Logger
}

// NewLogNotifier writes notifications to the log instead of a broker.
func NewLogNotifier(l logger.Logger) NotificationPort {
	return &logNotifier{l: l}
}

func (n *logNotifier) Send(ctx context.Context, holderID, template string, data map[string]any) error {
	n.l.Infof(ctx, "notification %s for holder %s: %v", template, holderID, data)
	return nil
}

// notify sends and logs failures.
func notify(ctx context.Context, np NotificationPort, l logger.Logger, holderID, template string, data map[string]any) {
	if np == nil {
		return
	}
	if err := np.Send(ctx, holderID, template, data); err != nil {
		l.Warnf(ctx, "service.notify: %s to %s: %v", template, holderID, err)
	}
}
