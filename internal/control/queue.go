package control

import (
	"context"
	"log/slog"
	"sync"

	"github.com/openmms/mmsd/internal/core/domain"
	"github.com/openmms/mmsd/internal/dispatch/executor"
	"github.com/openmms/mmsd/internal/dispatch/metrics"
	"github.com/openmms/mmsd/internal/infra/storage"
)

// Queues serializes request execution per operation kind. Requests of the
// same kind run one at a time in submission order; the two kinds run
// independently of each other.
type Queues struct {
	send     chan *domain.Request
	download chan *domain.Request
	exec     *executor.Executor
	repo     storage.MessageRepository
	wg       sync.WaitGroup
}

// NewQueues creates the per-kind execution queues.
func NewQueues(exec *executor.Executor, repo storage.MessageRepository, size int) *Queues {
	if size <= 0 {
		size = 64
	}
	return &Queues{
		send:     make(chan *domain.Request, size),
		download: make(chan *domain.Request, size),
		exec:     exec,
		repo:     repo,
	}
}

// Enqueue adds a request to its kind's queue. It blocks when the queue is
// full, pushing back on the caller.
func (q *Queues) Enqueue(req *domain.Request) {
	metrics.QueueDepth.WithLabelValues(string(req.Kind)).Inc()
	switch req.Kind {
	case domain.KindDownload:
		q.download <- req
	default:
		q.send <- req
	}
}

// Start launches one worker per kind. Workers stop when ctx is canceled.
func (q *Queues) Start(ctx context.Context) {
	q.wg.Add(2)
	go q.run(ctx, string(domain.KindSend), q.send)
	go q.run(ctx, string(domain.KindDownload), q.download)
}

// Wait blocks until both workers have exited.
func (q *Queues) Wait() {
	q.wg.Wait()
}

func (q *Queues) run(ctx context.Context, kind string, ch <-chan *domain.Request) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-ch:
			metrics.QueueDepth.WithLabelValues(kind).Dec()
			if err := q.repo.UpdateStatus(ctx, req.MessageID, domain.StatusRunning); err != nil {
				slog.Warn("failed to mark message running",
					"transaction_id", req.TransactionID, "error", err)
			}
			q.exec.Run(ctx, req)
		}
	}
}
