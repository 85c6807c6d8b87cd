package evaluation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"loan-approval/internal/classifier"
	apperrors "loan-approval/internal/common/errors"
	"loan-approval/internal/common/logger"
	"loan-approval/internal/common/metrics"
	"loan-approval/internal/common/observability"
	"loan-approval/internal/features"
	"loan-approval/internal/models"
)

// VerdictCache holds labels keyed by model version and vector fingerprint.
type VerdictCache interface {
	Get(ctx context.Context, modelVersion, fingerprint string) (int, bool, error)
	Set(ctx context.Context, modelVersion, fingerprint string, label int) error
}

// DecisionRecorder persists evaluated decisions.
type DecisionRecorder interface {
	Record(ctx context.Context, d models.Decision) error
}

// Request is one evaluation. Persist asks the service to record the decision
// itself; the BPMN path leaves that to the record-loan-decision task.
type Request struct {
	ApplicationID string
	Channel       string
	Record        models.ApplicantRecord
	Persist       bool
}

// Result is the presented outcome of one evaluation.
type Result struct {
	DecisionID           string                 `json:"decisionId"`
	ApplicationID        string                 `json:"applicationId,omitempty"`
	Approved             bool                   `json:"approved"`
	Verdict              string                 `json:"verdict"`
	Message              string                 `json:"message"`
	HousingToIncomeRatio float64                `json:"housingToIncomeRatio"`
	Features             []features.Feature     `json:"features"`
	ModelVersion         string                 `json:"modelVersion"`
	SchemaVersion        string                 `json:"schemaVersion"`
	Channel              string                 `json:"channel"`
	Cached               bool                   `json:"cached"`
	EvaluatedAt          time.Time              `json:"evaluatedAt"`
	Applicant            models.ApplicantRecord `json:"applicant"`

	vector features.Vector
}

// Decision converts the result into its persisted form.
func (r *Result) Decision() models.Decision {
	return models.Decision{
		ID:                   r.DecisionID,
		ApplicationID:        r.ApplicationID,
		Approved:             r.Approved,
		Verdict:              r.Verdict,
		HousingToIncomeRatio: r.HousingToIncomeRatio,
		Applicant:            r.Applicant,
		Features:             r.vector.Map(),
		ModelVersion:         r.ModelVersion,
		SchemaVersion:        r.SchemaVersion,
		Channel:              r.Channel,
		EvaluatedAt:          r.EvaluatedAt,
	}
}

// Vector is the encoded input the classifier saw.
func (r *Result) Vector() features.Vector { return r.vector }

type Service struct {
	encoder  *features.Encoder
	model    classifier.Classifier
	cache    VerdictCache
	recorder DecisionRecorder
	obs      *observability.Observability
	logger   logger.Logger
	now      func() time.Time
	newID    func() string
}

type Option func(*Service)

func WithCache(c VerdictCache) Option {
	return func(s *Service) { s.cache = c }
}

func WithRecorder(r DecisionRecorder) Option {
	return func(s *Service) { s.recorder = r }
}

func WithObservability(o *observability.Observability) Option {
	return func(s *Service) { s.obs = o }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(encoder *features.Encoder, model classifier.Classifier, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		encoder: encoder,
		model:   model,
		logger:  log.WithFields(map[string]interface{}{"component": "evaluation"}),
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Schema() *features.Schema { return s.encoder.Schema() }

func (s *Service) ModelVersion() string { return s.model.Version() }

// Evaluate runs one record through the pipeline on the API channel.
func (s *Service) Evaluate(ctx context.Context, record models.ApplicantRecord) (*Result, error) {
	return s.EvaluateRequest(ctx, Request{Channel: models.ChannelAPI, Record: record})
}

// EvaluateRequest validates, encodes, predicts and presents. An invalid record
// never reaches the encoder.
func (s *Service) EvaluateRequest(ctx context.Context, req Request) (*Result, error) {
	channel := req.Channel
	if channel == "" {
		channel = models.ChannelAPI
	}
	start := s.now()

	if err := req.Record.Validate(); err != nil {
		code := apperrors.Normalize(err).Code
		metrics.RejectedInputs.WithLabelValues(string(code), channel).Inc()
		s.logger.Warn("applicant input rejected", map[string]interface{}{
			"channel":       channel,
			"applicationId": req.ApplicationID,
			"errorCode":     code,
			"error":         err,
		})
		return nil, err
	}

	vector := s.encoder.Encode(req.Record)
	version := s.model.Version()
	fingerprint := vector.Fingerprint()

	label, cached := s.lookup(ctx, version, fingerprint)

	if !cached {
		var err error
		label, err = s.model.Predict(ctx, vector)
		if err != nil {
			s.logger.Error("prediction failed", map[string]interface{}{
				"channel":      channel,
				"modelVersion": version,
				"error":        err,
			})
			if _, ok := apperrors.AsStandardError(err); ok {
				return nil, err
			}
			return nil, apperrors.NewPredictionFailedError(err)
		}
		s.store(ctx, version, fingerprint, label)
	}

	verdict, err := classifier.NewVerdict(label)
	if err != nil {
		return nil, err
	}

	result := &Result{
		DecisionID:           s.newID(),
		ApplicationID:        req.ApplicationID,
		Approved:             verdict.Approved,
		Verdict:              verdict.Text,
		Message:              verdict.Message,
		HousingToIncomeRatio: req.Record.HousingToIncomeRatio(),
		Features:             vector.Entries(),
		ModelVersion:         version,
		SchemaVersion:        s.encoder.Schema().Version,
		Channel:              channel,
		Cached:               cached,
		EvaluatedAt:          s.now().UTC(),
		Applicant:            req.Record,
		vector:               vector,
	}

	if req.Persist && s.recorder != nil {
		if err := s.recorder.Record(ctx, result.Decision()); err != nil {
			s.logger.Warn("decision recording failed", map[string]interface{}{
				"decisionId": result.DecisionID,
				"error":      err,
			})
		}
	}

	elapsed := s.now().Sub(start)
	metrics.EvaluationsTotal.WithLabelValues(verdict.Text, channel).Inc()
	metrics.EvaluationDuration.WithLabelValues(channel).Observe(elapsed.Seconds())
	s.obs.RecordEvaluation(ctx, verdict.Text, channel)
	s.obs.RecordEvaluationDuration(ctx, elapsed, channel)

	s.logger.Info("applicant evaluated", map[string]interface{}{
		"decisionId":    result.DecisionID,
		"applicationId": req.ApplicationID,
		"channel":       channel,
		"approved":      result.Approved,
		"cached":        cached,
		"modelVersion":  version,
	})
	return result, nil
}

func (s *Service) lookup(ctx context.Context, version, fingerprint string) (int, bool) {
	if s.cache == nil {
		return 0, false
	}
	label, hit, err := s.cache.Get(ctx, version, fingerprint)
	switch {
	case err != nil:
		metrics.VerdictCacheRequests.WithLabelValues(metrics.CacheError).Inc()
		s.logger.Warn("verdict cache lookup failed", map[string]interface{}{"error": err})
		return 0, false
	case hit:
		metrics.VerdictCacheRequests.WithLabelValues(metrics.CacheHit).Inc()
		return label, true
	default:
		metrics.VerdictCacheRequests.WithLabelValues(metrics.CacheMiss).Inc()
		return 0, false
	}
}

func (s *Service) store(ctx context.Context, version, fingerprint string, label int) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, version, fingerprint, label); err != nil {
		s.logger.Warn("verdict cache store failed", map[string]interface{}{"error": err})
	}
}
