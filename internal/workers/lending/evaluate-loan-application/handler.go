package evaluateloanapplication

import (
	"context"
	"encoding/json"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"loan-approval/internal/common/errors"
	"loan-approval/internal/common/logger"
	"loan-approval/internal/common/metrics"
	"loan-approval/internal/evaluation"
	"loan-approval/internal/intake"
	"loan-approval/internal/models"
)

const TaskType = "evaluate-loan-application"

type Handler struct {
	config       *Config
	service      *evaluation.Service
	parser       *intake.PayloadParser
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, service *evaluation.Service, parser *intake.PayloadParser, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		service:      service,
		parser:       parser,
		errorHandler: errors.NewErrorHandler(l),
		logger:       l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, errors.NewInvalidApplicantInputError("parse input: "+err.Error()))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.Applicant == nil {
		return nil, errors.NewInvalidApplicantInputError("applicant is required")
	}

	record, err := h.parser.ParseValue(input.Applicant)
	if err != nil {
		return nil, err
	}

	result, err := h.service.EvaluateRequest(ctx, evaluation.Request{
		ApplicationID: input.ApplicationID,
		Channel:       models.ChannelWorker,
		Record:        record,
	})
	if err != nil {
		return nil, err
	}

	return &Output{
		ApplicationID:        input.ApplicationID,
		DecisionID:           result.DecisionID,
		Approved:             result.Approved,
		Verdict:              result.Verdict,
		VerdictMessage:       result.Message,
		HousingToIncomeRatio: result.HousingToIncomeRatio,
		FeatureVector:        result.Vector().Map(),
		ModelVersion:         result.ModelVersion,
		SchemaVersion:        result.SchemaVersion,
		EvaluatedAt:          result.EvaluatedAt.Format(time.RFC3339),
	}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	h.logger.Info("job completed successfully", map[string]interface{}{
		"jobKey":   job.Key,
		"approved": output.Approved,
	})
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
