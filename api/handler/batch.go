package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/anna-farino/RiskAi-sub010/models"
	"github.com/anna-farino/RiskAi-sub010/webhook"
)

// Batch job states.
const (
	BatchProcessing = "processing"
	BatchCompleted  = "completed"
	BatchPartial    = "partial"
	BatchFailed     = "failed"
)

const (
	batchRetention = time.Hour
	batchSweep     = 5 * time.Minute
)

type batchJob struct {
	mu        sync.Mutex
	id        string
	status    string
	total     int
	completed int
	failed    int
	results   []*models.BatchItem
	createdAt time.Time
}

func (j *batchJob) record(item models.BatchItem) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if item.Error != nil {
		j.failed++
	} else {
		j.completed++
	}
}

func (j *batchJob) finish(items []models.BatchItem) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.results = make([]*models.BatchItem, len(items))
	j.completed, j.failed = 0, 0
	for i := range items {
		j.results[i] = &items[i]
		if items[i].Error != nil {
			j.failed++
		} else {
			j.completed++
		}
	}
	switch {
	case j.failed == j.total:
		j.status = BatchFailed
	case j.failed > 0:
		j.status = BatchPartial
	default:
		j.status = BatchCompleted
	}
}

func (j *batchJob) snapshot() models.BatchStatusResponse {
	j.mu.Lock()
	defer j.mu.Unlock()
	return models.BatchStatusResponse{
		ID:        j.id,
		Status:    j.status,
		Completed: j.completed,
		Failed:    j.failed,
		Total:     j.total,
		Results:   j.results,
	}
}

// Batches runs batch extractions in the background and serves their
// status. Finished jobs are kept for an hour.
type Batches struct {
	ctx         context.Context
	svc         Service
	concurrency int
	secret      string
	notify      func(url, secret string, event *webhook.Event)

	mu   sync.Mutex
	jobs map[string]*batchJob
	wg   sync.WaitGroup
}

// NewBatches creates a job store. Running jobs are cancelled and expired
// jobs stop being swept once ctx is done.
func NewBatches(ctx context.Context, svc Service, concurrency int, webhookSecret string) *Batches {
	b := &Batches{
		ctx:         ctx,
		svc:         svc,
		concurrency: concurrency,
		secret:      webhookSecret,
		notify:      webhook.DeliverAsync,
		jobs:        make(map[string]*batchJob),
	}
	go b.sweepLoop()
	return b
}

// Wait blocks until every started job has finished.
func (b *Batches) Wait() { b.wg.Wait() }

// Post returns a handler for POST /api/v1/batch/extract.
func (b *Batches) Post() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}

		job := &batchJob{
			id:        "batch-" + uuid.NewString(),
			status:    BatchProcessing,
			total:     len(req.URLs),
			createdAt: time.Now(),
		}
		b.mu.Lock()
		b.jobs[job.id] = job
		b.mu.Unlock()

		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.run(job, req)
		}()

		c.JSON(http.StatusAccepted, models.BatchResponse{
			ID:     job.id,
			Status: BatchProcessing,
			Total:  job.total,
		})
	}
}

// Get returns a handler for GET /api/v1/batch/:id.
func (b *Batches) Get() gin.HandlerFunc {
	return func(c *gin.Context) {
		b.mu.Lock()
		job, ok := b.jobs[c.Param("id")]
		b.mu.Unlock()
		if !ok {
			c.JSON(http.StatusNotFound, models.NewErrorResponse(models.ErrCodeInvalidInput, "batch job not found"))
			return
		}
		c.JSON(http.StatusOK, job.snapshot())
	}
}

func (b *Batches) run(job *batchJob, req models.BatchRequest) {
	items := b.svc.ExtractBatch(b.ctx, req.URLs, b.concurrency, job.record)
	job.finish(items)

	snap := job.snapshot()
	slog.Info("batch job finished",
		"id", snap.ID,
		"status", snap.Status,
		"completed", snap.Completed,
		"failed", snap.Failed,
		"total", snap.Total,
	)

	if req.WebhookURL != "" && b.notify != nil {
		b.notify(req.WebhookURL, b.secret, &webhook.Event{
			Type:      webhook.EventBatchCompleted,
			JobID:     snap.ID,
			Timestamp: time.Now().Unix(),
			Data:      snap,
		})
	}
}

func (b *Batches) sweepLoop() {
	ticker := time.NewTicker(batchSweep)
	defer ticker.Stop()
	for {
		select {
		case <-b.ctx.Done():
			return
		case now := <-ticker.C:
			b.expire(now.Add(-batchRetention))
		}
	}
}

// expire drops finished jobs created before cutoff.
func (b *Batches) expire(cutoff time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, job := range b.jobs {
		job.mu.Lock()
		done := job.status != BatchProcessing
		old := job.createdAt.Before(cutoff)
		job.mu.Unlock()
		if done && old {
			delete(b.jobs, id)
		}
	}
}
