package service

import (
	"context"
	"time"

	"fabrisys/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Event types published to the NotificationSink.
const (
	EventSessionOpened    = "session_opened"
	EventSessionClosed    = "session_closed"
	EventSideEffectFailed = "side_effect_failed"
)

// Event is an outbound, fire-and-forget notification.
type Event struct {
	Type       string             `json:"type"`
	SessionID  uuid.UUID          `json:"session_id"`
	LocationID uuid.UUID          `json:"location_id"`
	OperatorID uuid.UUID          `json:"operator_id"`
	SaleID     *uuid.UUID         `json:"sale_id,omitempty"`
	Effect     string             `json:"effect,omitempty"` // loyalty_earn | loyalty_redeem | promotion_lookup
	Detail     string             `json:"detail,omitempty"`
	Session    *model.CashSession `json:"session,omitempty"`
	OccurredAt time.Time          `json:"occurred_at"`
}

// Notifier publishes events. Implementations must not block on delivery.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// NoopNotifier drops every event. Used when Redis is not configured.
type NoopNotifier struct{}

func (NoopNotifier) Notify(context.Context, Event) error { return nil }

// publish sends ev and only logs a failure.
func publish(ctx context.Context, n Notifier, ev Event) {
	if n == nil {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = now()
	}
	if err := n.Notify(ctx, ev); err != nil {
		log.Warn().Err(err).
			Str("event", ev.Type).
			Str("session_id", ev.SessionID.String()).
			Msg("notify: enqueue failed")
	}
}

func publishSideEffectFailure(ctx context.Context, n Notifier, session *model.CashSession, actor ActorContext, saleID *uuid.UUID, effect string, res SideEffectResult) {
	if !res.Failed() {
		return
	}
	publish(ctx, n, Event{
		Type:       EventSideEffectFailed,
		SessionID:  session.ID,
		LocationID: session.LocationID,
		OperatorID: actor.OperatorID,
		SaleID:     saleID,
		Effect:     effect,
		Detail:     res.Err.Error(),
	})
}
