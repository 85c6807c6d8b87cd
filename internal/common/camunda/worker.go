package camunda

import (
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"loan-approval/internal/common/logger"
)

type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// WorkerOptions configures one job worker subscription.
type WorkerOptions struct {
	TaskType      string
	MaxJobsActive int
	Timeout       time.Duration
}

type CamundaWorker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

func NewWorker(client zbc.Client, opts WorkerOptions, handler JobHandler, log logger.Logger) *CamundaWorker {
	l := log.WithFields(map[string]interface{}{"taskType": opts.TaskType})

	step := client.NewJobWorker().
		JobType(opts.TaskType).
		Handler(handler.Handle).
		MaxJobsActive(opts.MaxJobsActive)
	if opts.Timeout > 0 {
		step = step.Timeout(opts.Timeout)
	}

	w := &CamundaWorker{
		worker:   step.Open(),
		logger:   l,
		taskType: opts.TaskType,
	}
	l.Info("worker started", map[string]interface{}{
		"maxJobsActive": opts.MaxJobsActive,
	})
	return w
}

func (w *CamundaWorker) TaskType() string { return w.taskType }

// Stop closes the subscription and waits for in-flight jobs. The client is
// owned by the caller.
func (w *CamundaWorker) Stop() {
	w.logger.Info("stopping worker", nil)
	w.worker.Close()
	w.worker.AwaitClose()
}
