package decisions

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"loan-approval/internal/common/config"
	apperrors "loan-approval/internal/common/errors"
	"loan-approval/internal/common/logger"
	"loan-approval/internal/models"
)

//go:embed schema.sql
var schemaSQL string

const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
)

// OpenPostgres opens a pooled connection. It does not ping.
func OpenPostgres(cfg config.PostgresConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return db, nil
}

// PostgresStore persists decisions in loan_decisions with an audit_log trail.
type PostgresStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresStore(db *sql.DB, log logger.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "decision-store"}),
	}
}

// EnsureSchema creates the tables if they are missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return apperrors.NewDecisionStoreFailedError(fmt.Errorf("create schema: %w", err))
	}
	return nil
}

// Record inserts a decision. An ID that is not a UUID is
// INVALID_APPLICANT_INPUT and a known ID is DUPLICATE_DECISION; any other
// database failure is the retryable DECISION_STORE_FAILED.
func (s *PostgresStore) Record(ctx context.Context, d models.Decision) error {
	if _, err := uuid.Parse(d.ID); err != nil {
		return invalidDecisionID(d.ID)
	}

	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM loan_decisions WHERE id = $1)`, d.ID).Scan(&exists)
	if err != nil {
		if hasPQCode(err, invalidTextRepresentation) {
			return invalidDecisionID(d.ID)
		}
		return apperrors.NewDecisionStoreFailedError(fmt.Errorf("duplicate check failed: %w", err))
	}
	if exists {
		return apperrors.NewDuplicateDecisionError(d.ID)
	}

	applicantJSON, err := json.Marshal(d.Applicant)
	if err != nil {
		return apperrors.NewDecisionStoreFailedError(fmt.Errorf("marshal applicant: %w", err))
	}
	featuresJSON, err := json.Marshal(d.Features)
	if err != nil {
		return apperrors.NewDecisionStoreFailedError(fmt.Errorf("marshal features: %w", err))
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO loan_decisions (
			id, application_id, approved, verdict, housing_to_income_ratio,
			applicant, features, model_version, schema_version, channel, evaluated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		d.ID,
		nullString(d.ApplicationID),
		d.Approved,
		d.Verdict,
		d.HousingToIncomeRatio,
		applicantJSON,
		featuresJSON,
		d.ModelVersion,
		d.SchemaVersion,
		d.Channel,
		d.EvaluatedAt.UTC(),
	)
	if err != nil {
		switch {
		case hasPQCode(err, uniqueViolation):
			return apperrors.NewDuplicateDecisionError(d.ID)
		case hasPQCode(err, invalidTextRepresentation):
			return apperrors.NewInvalidApplicantInputError(fmt.Sprintf("decision rejected by store: %v", err))
		}
		return apperrors.NewDecisionStoreFailedError(fmt.Errorf("insert failed: %w", err))
	}

	details, _ := json.Marshal(map[string]interface{}{
		"applicationId": d.ApplicationID,
		"approved":      d.Approved,
		"modelVersion":  d.ModelVersion,
		"channel":       d.Channel,
	})
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (event_type, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		"loan_decision_recorded",
		"loan_decision",
		d.ID,
		details,
		time.Now().UTC(),
	); err != nil {
		s.logger.Warn("audit log insert failed", map[string]interface{}{
			"error":      err,
			"decisionId": d.ID,
		})
	}

	s.logger.Info("decision recorded", map[string]interface{}{
		"decisionId":    d.ID,
		"applicationId": d.ApplicationID,
		"approved":      d.Approved,
	})
	return nil
}

// Get loads one decision by ID. An ID that is not a UUID cannot exist and is
// DECISION_NOT_FOUND.
func (s *PostgresStore) Get(ctx context.Context, id string) (*models.Decision, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewDecisionNotFoundError(id)
	}

	var (
		d             models.Decision
		applicationID sql.NullString
		applicantJSON []byte
		featuresJSON  []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, application_id, approved, verdict, housing_to_income_ratio,
		       applicant, features, model_version, schema_version, channel, evaluated_at
		FROM loan_decisions WHERE id = $1`, id).Scan(
		&d.ID, &applicationID, &d.Approved, &d.Verdict, &d.HousingToIncomeRatio,
		&applicantJSON, &featuresJSON, &d.ModelVersion, &d.SchemaVersion, &d.Channel, &d.EvaluatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) || hasPQCode(err, invalidTextRepresentation) {
		return nil, apperrors.NewDecisionNotFoundError(id)
	}
	if err != nil {
		return nil, apperrors.NewDecisionStoreFailedError(fmt.Errorf("select failed: %w", err))
	}

	d.ApplicationID = applicationID.String
	if err := json.Unmarshal(applicantJSON, &d.Applicant); err != nil {
		return nil, apperrors.NewDecisionStoreFailedError(fmt.Errorf("decode applicant: %w", err))
	}
	if err := json.Unmarshal(featuresJSON, &d.Features); err != nil {
		return nil, apperrors.NewDecisionStoreFailedError(fmt.Errorf("decode features: %w", err))
	}
	return &d, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func hasPQCode(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}

func invalidDecisionID(id string) error {
	return apperrors.NewInvalidApplicantInputError(fmt.Sprintf("decisionId: %q is not a UUID", id))
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
