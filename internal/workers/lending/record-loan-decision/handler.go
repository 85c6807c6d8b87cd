package recordloandecision

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	"loan-approval/internal/classifier"
	"loan-approval/internal/common/errors"
	"loan-approval/internal/common/logger"
	"loan-approval/internal/common/metrics"
	"loan-approval/internal/intake"
	"loan-approval/internal/models"
)

const TaskType = "record-loan-decision"

// Recorder persists a decision. Duplicates fail with DUPLICATE_DECISION.
type Recorder interface {
	Record(ctx context.Context, d models.Decision) error
}

type Handler struct {
	config       *Config
	store        Recorder
	parser       *intake.PayloadParser
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, store Recorder, parser *intake.PayloadParser, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		store:        store,
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
	var missing []string
	if input.DecisionID == "" {
		missing = append(missing, "decisionId")
	}
	if input.Verdict == "" {
		missing = append(missing, "verdict")
	}
	if input.ModelVersion == "" {
		missing = append(missing, "modelVersion")
	}
	if len(input.Applicant) == 0 {
		missing = append(missing, "applicant")
	}
	if len(missing) > 0 {
		return nil, errors.NewInvalidApplicantInputError("missing " + strings.Join(missing, ", "))
	}
	if _, err := uuid.Parse(input.DecisionID); err != nil {
		return nil, errors.NewInvalidApplicantInputError(fmt.Sprintf("decisionId: %q is not a UUID", input.DecisionID))
	}
	if err := checkVerdict(input.Approved, input.Verdict); err != nil {
		return nil, err
	}

	record, err := h.parser.Parse(input.Applicant)
	if err != nil {
		return nil, err
	}

	evaluatedAt := time.Now().UTC()
	if input.EvaluatedAt != "" {
		if evaluatedAt, err = time.Parse(time.RFC3339, input.EvaluatedAt); err != nil {
			return nil, errors.NewInvalidApplicantInputError(fmt.Sprintf("evaluatedAt: %v", err))
		}
	}

	decision := models.Decision{
		ID:                   input.DecisionID,
		ApplicationID:        input.ApplicationID,
		Approved:             input.Approved,
		Verdict:              input.Verdict,
		HousingToIncomeRatio: input.HousingToIncomeRatio,
		Applicant:            record,
		Features:             input.FeatureVector,
		ModelVersion:         input.ModelVersion,
		SchemaVersion:        input.SchemaVersion,
		Channel:              models.ChannelWorker,
		EvaluatedAt:          evaluatedAt,
	}
	if err := h.store.Record(ctx, decision); err != nil {
		return nil, err
	}

	h.logger.Info("loan decision recorded", map[string]interface{}{
		"decisionId":    input.DecisionID,
		"applicationId": input.ApplicationID,
		"approved":      input.Approved,
	})

	return &Output{
		DecisionID: input.DecisionID,
		Recorded:   true,
		RecordedAt: time.Now().UTC().Format(time.RFC3339),
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
		"jobKey": job.Key,
	})
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

// checkVerdict requires the verdict text NewVerdict gives for the approved flag.
func checkVerdict(approved bool, verdict string) error {
	want := classifier.TextNotApproved
	if approved {
		want = classifier.TextApproved
	}
	if verdict != want {
		return errors.NewInvalidApplicantInputError(
			fmt.Sprintf("verdict %q does not match approved=%t", verdict, approved))
	}
	return nil
}
