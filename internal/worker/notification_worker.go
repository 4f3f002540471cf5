package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"fabrisys/internal/infra"
	"fabrisys/internal/model"
	"fabrisys/internal/service"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// AlertMailer sends the variance alert e-mail.
type AlertMailer interface {
	Enabled() bool
	Send(to, subject, body string, attachments ...infra.Attachment) error
}

// AgendaEnqueuer schedules a supervisor follow-up.
type AgendaEnqueuer interface {
	EnqueueAgenda(ctx context.Context, r infra.AgendaReminder) error
}

// NotificationWorker consumes session events. Every event is logged; a
// closing whose |variance| reaches the threshold also produces the closing
// slip, an alert e-mail and an agenda reminder.
type NotificationWorker struct {
	mailer      AlertMailer
	agenda      AgendaEnqueuer
	alertEmail  string
	threshold   decimal.Decimal
	storagePath string
}

func NewNotificationWorker(mailer AlertMailer, agenda AgendaEnqueuer, alertEmail string, threshold decimal.Decimal, storagePath string) *NotificationWorker {
	return &NotificationWorker{
		mailer:      mailer,
		agenda:      agenda,
		alertEmail:  alertEmail,
		threshold:   threshold,
		storagePath: storagePath,
	}
}

func (w *NotificationWorker) Process(ctx context.Context, payload json.RawMessage) error {
	var ev service.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("notification: invalid payload: %w", err)
	}

	log.Info().
		Str("event", ev.Type).
		Str("session_id", ev.SessionID.String()).
		Str("location_id", ev.LocationID.String()).
		Str("operator_id", ev.OperatorID.String()).
		Str("effect", ev.Effect).
		Str("detail", ev.Detail).
		Msg("notification received")

	if ev.Type != service.EventSessionClosed || ev.Session == nil {
		return nil
	}
	if !w.needsAlert(ev.Session) {
		return nil
	}
	w.alert(ctx, ev.Session)
	return nil
}

func (w *NotificationWorker) needsAlert(s *model.CashSession) bool {
	if s.Variance == nil {
		return false
	}
	if s.Variance.IsZero() {
		return false
	}
	return s.Variance.Abs().GreaterThanOrEqual(w.threshold)
}

// alert is best effort: a failing channel is logged and the others still run.
func (w *NotificationWorker) alert(ctx context.Context, s *model.CashSession) {
	class := ""
	if s.VarianceClass != nil {
		class = *s.VarianceClass
	}

	slip, err := infra.GenerateClosingSlipPDF(s)
	if err != nil {
		log.Error().Err(err).Str("session_id", s.ID.String()).Msg("notification: closing slip failed")
	} else if w.storagePath != "" {
		if path, err := infra.SaveClosingSlip(w.storagePath, s, slip); err != nil {
			log.Error().Err(err).Str("session_id", s.ID.String()).Msg("notification: saving closing slip failed")
		} else {
			log.Info().Str("path", path).Msg("closing slip stored")
		}
	}

	if w.mailer != nil && w.mailer.Enabled() && w.alertEmail != "" {
		var attachments []infra.Attachment
		if slip != nil {
			attachments = append(attachments, infra.Attachment{
				Name:        fmt.Sprintf("closing_%s.pdf", s.ID),
				ContentType: "application/pdf",
				Data:        slip,
			})
		}
		subject := fmt.Sprintf("Till variance %s (%s)", s.Variance.StringFixed(2), class)
		if err := w.mailer.Send(w.alertEmail, subject, alertBody(s, class), attachments...); err != nil {
			log.Error().Err(err).Str("session_id", s.ID.String()).Msg("notification: alert e-mail failed")
		}
	}

	if w.agenda != nil {
		r := infra.AgendaReminder{
			Title:      "Review till closing",
			Body:       alertBody(s, class),
			SessionID:  s.ID.String(),
			LocationID: s.LocationID.String(),
			Variance:   s.Variance.StringFixed(2),
			Class:      class,
			DueAt:      time.Now().UTC().Add(24 * time.Hour),
		}
		if err := w.agenda.EnqueueAgenda(ctx, r); err != nil {
			log.Error().Err(err).Str("session_id", s.ID.String()).Msg("notification: enqueue agenda reminder failed")
		}
	}
}

func alertBody(s *model.CashSession, class string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session %s at location %s closed with a variance of %s (%s).\n",
		s.ID, s.LocationID, s.Variance.StringFixed(2), class)
	if s.ExpectedTotal != nil {
		fmt.Fprintf(&b, "Expected: %s\n", s.ExpectedTotal.StringFixed(2))
	}
	if s.InformedTotal != nil {
		fmt.Fprintf(&b, "Informed: %s\n", s.InformedTotal.StringFixed(2))
	}
	return b.String()
}
