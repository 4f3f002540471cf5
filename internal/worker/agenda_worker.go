package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fabrisys/internal/infra"

	"github.com/rs/zerolog/log"
)

// ReminderPoster delivers a reminder to the agenda.
type ReminderPoster interface {
	Enabled() bool
	CreateReminder(ctx context.Context, r infra.AgendaReminder) error
}

// AgendaWorker posts reminders with retries. Exhausted jobs are returned as
// errors so the pool moves them to the DLQ.
type AgendaWorker struct {
	client      ReminderPoster
	maxAttempts int
	backoff     time.Duration
}

func NewAgendaWorker(client ReminderPoster) *AgendaWorker {
	return &AgendaWorker{client: client, maxAttempts: 3, backoff: time.Second}
}

func (w *AgendaWorker) Process(ctx context.Context, payload json.RawMessage) error {
	var r infra.AgendaReminder
	if err := json.Unmarshal(payload, &r); err != nil {
		return fmt.Errorf("agenda: invalid payload: %w", err)
	}
	if w.client == nil || !w.client.Enabled() {
		log.Debug().Str("session_id", r.SessionID).Msg("agenda: webhook not configured, reminder dropped")
		return nil
	}

	err := withRetry(ctx, w.maxAttempts, w.backoff, func(attempt int) error {
		err := w.client.CreateReminder(ctx, r)
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt+1).Str("session_id", r.SessionID).Msg("agenda: reminder attempt failed")
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("agenda: giving up after %d attempts: %w", w.maxAttempts, err)
	}
	log.Info().Str("session_id", r.SessionID).Msg("agenda reminder created")
	return nil
}
