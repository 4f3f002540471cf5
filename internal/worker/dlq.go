package worker

// dlq.go: till jobs whose handler gave up are parked in dlq:{queue} so an
// operator can see which session lost its alert or reminder.

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DLQPrefix = "dlq:"

// DLQEntry is a failed job plus the session it was about.
type DLQEntry struct {
	OriginalQueue string          `json:"original_queue"`
	JobType       string          `json:"job_type"`
	SessionID     string          `json:"session_id,omitempty"`
	EventType     string          `json:"event_type,omitempty"`
	Payload       json.RawMessage `json:"payload"`
	Reason        string          `json:"reason"`
	FailedAt      time.Time       `json:"failed_at"`
}

// jobSubject pulls the session and event type out of a notification or
// agenda payload. Both carry session_id; only events carry type.
func jobSubject(payload json.RawMessage) (sessionID, eventType string) {
	var subject struct {
		SessionID string `json:"session_id"`
		Type      string `json:"type"`
	}
	if err := json.Unmarshal(payload, &subject); err != nil {
		return "", ""
	}
	return subject.SessionID, subject.Type
}

func newDLQEntry(queue, jobType string, payload json.RawMessage, reason string) DLQEntry {
	sessionID, eventType := jobSubject(payload)
	return DLQEntry{
		OriginalQueue: queue,
		JobType:       jobType,
		SessionID:     sessionID,
		EventType:     eventType,
		Payload:       payload,
		Reason:        reason,
		FailedAt:      time.Now().UTC(),
	}
}

// SendToDLQ parks a failed job. Push failures are logged, never returned:
// the job is already lost to its handler.
func SendToDLQ(ctx context.Context, rdb redis.Cmdable, queue, jobType string, payload json.RawMessage, reason string) {
	entry := newDLQEntry(queue, jobType, payload, reason)
	data, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: failed to marshal entry")
		return
	}

	key := DLQPrefix + queue
	if err := rdb.LPush(ctx, key, data).Err(); err != nil {
		log.Error().Err(err).Str("dlq_key", key).Str("session_id", entry.SessionID).Msg("dlq: push failed")
		return
	}

	log.Warn().
		Str("queue", queue).
		Str("job_type", jobType).
		Str("session_id", entry.SessionID).
		Str("event_type", entry.EventType).
		Str("reason", reason).
		Msg("dlq: job parked")
}

// DLQLength reports how many jobs are parked for queue.
func DLQLength(ctx context.Context, rdb redis.Cmdable, queue string) (int64, error) {
	return rdb.LLen(ctx, DLQPrefix+queue).Result()
}
