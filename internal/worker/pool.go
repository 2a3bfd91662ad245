package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueAlerts = "jobs:alerts"
	dlqPrefix   = "dlq:"
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// AlertPayload is the escalation envelope. Accounting inconsistencies are the
// main producer: they signal upstream data corruption and must reach a human.
type AlertPayload struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// EnqueueAlert pushes an escalation job. Best-effort from the caller's side;
// delivery retries live in the worker.
func (d *Dispatcher) EnqueueAlert(ctx context.Context, p AlertPayload) error {
	if d == nil || d.rdb == nil {
		return nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(Job{Type: "alert", Payload: data})
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, QueueAlerts, encoded).Err()
}

// WorkerHandlers wires job types to their processors.
type WorkerHandlers struct {
	Alert *AlertWorker
}

// StartWorkerPool launches numWorkers goroutines consuming the alert queue.
// Each goroutine blocks on BRPOP — zero CPU when idle.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, handlers, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop — waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, QueueAlerts).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, rdb, handlers, result[0], result[1])
		}
	}
}

func processJob(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}
	switch job.Type {
	case "alert":
		if err := handlers.Alert.Process(ctx, job.Payload); err != nil {
			log.Error().Err(err).Msg("alert job failed — sending to DLQ")
			sendToDLQ(ctx, rdb, queue, job, err.Error())
		}
	default:
		log.Warn().Str("type", job.Type).Msg("unknown job type")
	}
}

// sendToDLQ parks a failed job in dlq:{queue} for manual inspection.
func sendToDLQ(ctx context.Context, rdb *redis.Client, queue string, job Job, reason string) {
	entry := struct {
		Job      Job    `json:"job"`
		Reason   string `json:"reason"`
		FailedAt string `json:"failed_at"`
	}{job, reason, time.Now().UTC().Format(time.RFC3339)}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := rdb.LPush(ctx, dlqPrefix+queue, data).Err(); err != nil {
		log.Error().Err(err).Msg("failed to push job to DLQ")
	}
}
