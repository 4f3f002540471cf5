package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"fabrisys/internal/infra"
	"fabrisys/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueNotifications = "jobs:notifications"
	QueueAgenda        = "jobs:agenda"
)

// Job types.
const (
	JobNotification   = "notification"
	JobAgendaReminder = "agenda_reminder"
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Handler processes one job payload. A returned error sends the job to the
// dead letter queue; handlers do their own retrying.
type Handler interface {
	Process(ctx context.Context, payload json.RawMessage) error
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// Notify implements service.Notifier.
func (d *Dispatcher) Notify(ctx context.Context, ev service.Event) error {
	return d.enqueue(ctx, QueueNotifications, JobNotification, ev)
}

// EnqueueAgenda pushes an agenda reminder job to Redis.
func (d *Dispatcher) EnqueueAgenda(ctx context.Context, r infra.AgendaReminder) error {
	return d.enqueue(ctx, QueueAgenda, JobAgendaReminder, r)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job := Job{Type: jobType, Payload: data}
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// popErrorBackoff is the pause after a BRPOP that failed for a reason other
// than its timeout, such as Redis being unreachable.
var popErrorBackoff = 2 * time.Second

// StartWorkerPool launches numWorkers goroutines consuming both queues.
// Each goroutine blocks on BRPOP, so idle workers cost no CPU.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, numWorkers int, handlers map[string]Handler) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, i, handlers)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb redis.Cmdable, id int, handlers map[string]Handler) {
	queues := []string{QueueNotifications, QueueAgenda}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop, waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) || ctx.Err() != nil {
					continue // timeout or shutdown
				}
				log.Error().Err(err).Int("worker", id).Msg("queue pop failed")
				select {
				case <-ctx.Done():
				case <-time.After(popErrorBackoff):
				}
				continue
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, rdb, handlers, result[0], result[1])
		}
	}
}

func processJob(ctx context.Context, rdb redis.Cmdable, handlers map[string]Handler, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}

	h, ok := handlers[job.Type]
	if !ok {
		log.Error().Str("type", job.Type).Str("queue", queue).Msg("no handler for job type")
		SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, "no handler")
		return
	}

	log.Debug().Str("type", job.Type).Str("queue", queue).Msg("processing job")
	if err := h.Process(ctx, job.Payload); err != nil {
		SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, err.Error())
	}
}

// withRetry calls fn up to maxAttempts times with exponential backoff.
// Backoff schedule: attempt 1 = immediate, 2 = base, 3 = 2*base.
// Returns nil if any attempt succeeds; last error otherwise.
func withRetry(ctx context.Context, maxAttempts int, base time.Duration, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			wait := time.Duration(1<<uint(i-1)) * base
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := fn(i); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}
