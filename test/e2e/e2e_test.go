//go:build e2e

package e2e

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"loan-approval/internal/classifier"
	"loan-approval/internal/common/camunda"
	"loan-approval/internal/common/config"
	apperrors "loan-approval/internal/common/errors"
	"loan-approval/internal/common/logger"
	"loan-approval/internal/decisions"
	"loan-approval/internal/evaluation"
	"loan-approval/internal/features"
	"loan-approval/internal/intake"
	"loan-approval/internal/models"
	evaluateloanapplication "loan-approval/internal/workers/lending/evaluate-loan-application"
	recordloandecision "loan-approval/internal/workers/lending/record-loan-decision"
)

const (
	configPath = "../../configs/config.yaml"
	modelPath  = "../../models/loan_approval_model.json"
)

var zapLog *zap.Logger

func TestMain(m *testing.M) {
	zapLog, _ = zap.NewProduction()
	code := m.Run()
	_ = zapLog.Sync()
	os.Exit(code)
}

func applicant() map[string]interface{} {
	return map[string]interface{}{
		"loanAmount":              25000,
		"ficoScore":               760,
		"monthlyIncome":           8000,
		"monthlyHousingPayment":   1600,
		"everBankruptOrForeclose": false,
		"reason":                  "home_improvement",
		"employmentStatus":        "full_time",
		"employmentSector":        "information_technology",
		"lender":                  "B",
	}
}

func TestFullE2E(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg, err := config.LoadFromFile(configPath)
	require.NoError(t, err)
	log := logger.NewZapAdapter(zapLog)

	db, rdb := assertAllServicesConnectivity(ctx, t, cfg, log)
	defer db.Close()
	defer rdb.Close()

	schema, err := features.DefaultSchema()
	require.NoError(t, err)
	model, err := classifier.Load(config.ModelConfig{Path: modelPath, Format: config.FormatLinear}, schema)
	require.NoError(t, err)
	defer model.Close()

	store := decisions.NewPostgresStore(db, log)
	require.NoError(t, store.EnsureSchema(ctx))

	cache := decisions.NewRedisVerdictCache(rdb, time.Minute, "e2e:"+uuid.NewString()+":")
	svc := evaluation.NewService(features.NewEncoder(schema), model, log, evaluation.WithCache(cache))
	parser, err := intake.NewPayloadParser(schema)
	require.NoError(t, err)

	evaluate := evaluateloanapplication.NewHandler(evaluateloanapplication.DefaultConfig(), svc, parser, log)
	record := recordloandecision.NewHandler(recordloandecision.DefaultConfig(), store, parser, log)

	applicationID := "e2e-" + uuid.NewString()
	evaluated, err := evaluate.Execute(ctx, &evaluateloanapplication.Input{
		ApplicationID: applicationID,
		Applicant:     applicant(),
	})
	require.NoError(t, err)
	assert.Equal(t, applicationID, evaluated.ApplicationID)
	assert.InDelta(t, 0.2, evaluated.HousingToIncomeRatio, 1e-9)
	assert.Len(t, evaluated.FeatureVector, schema.Len())

	rawApplicant, err := json.Marshal(applicant())
	require.NoError(t, err)
	input := &recordloandecision.Input{
		DecisionID:           evaluated.DecisionID,
		ApplicationID:        evaluated.ApplicationID,
		Applicant:            rawApplicant,
		Approved:             evaluated.Approved,
		Verdict:              evaluated.Verdict,
		HousingToIncomeRatio: evaluated.HousingToIncomeRatio,
		FeatureVector:        evaluated.FeatureVector,
		ModelVersion:         evaluated.ModelVersion,
		SchemaVersion:        evaluated.SchemaVersion,
		EvaluatedAt:          evaluated.EvaluatedAt,
	}
	recorded, err := record.Execute(ctx, input)
	require.NoError(t, err)
	assert.True(t, recorded.Recorded)

	stored, err := store.Get(ctx, evaluated.DecisionID)
	require.NoError(t, err)
	assert.Equal(t, evaluated.Approved, stored.Approved)
	assert.Equal(t, applicationID, stored.ApplicationID)
	assert.Equal(t, models.ChannelWorker, stored.Channel)
	assert.Equal(t, models.LenderB, stored.Applicant.Lender)

	_, err = record.Execute(ctx, input)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeDuplicateDecision))

	again, err := svc.EvaluateRequest(ctx, evaluation.Request{Channel: models.ChannelAPI, Record: stored.Applicant})
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, evaluated.Approved, again.Approved)

	if cfg.Camunda.Enabled {
		zc, err := camunda.NewClient(ctx, camunda.ConfigFrom(cfg.Camunda), log)
		require.NoError(t, err)
		defer zc.Close()
		assert.NoError(t, zc.HealthCheck(ctx))
	}
}

func assertAllServicesConnectivity(ctx context.Context, t *testing.T, cfg *config.Config, log logger.Logger) (*sql.DB, *redis.Client) {
	t.Helper()

	db, err := decisions.OpenPostgres(cfg.Database.Postgres)
	require.NoError(t, err)
	require.NoError(t, db.PingContext(ctx), "postgres unreachable at %s:%d", cfg.Database.Postgres.Host, cfg.Database.Postgres.Port)

	rdb := decisions.NewRedisClient(cfg.Database.Redis)
	require.NoError(t, rdb.Ping(ctx).Err(), "redis unreachable at %s", cfg.Database.Redis.Address)

	log.Info("e2e dependencies reachable", map[string]interface{}{
		"postgres": cfg.Database.Postgres.Host,
		"redis":    cfg.Database.Redis.Address,
	})
	return db, rdb
}

func BenchmarkHandler_EvaluateLoanApplication(b *testing.B) {
	schema, err := features.DefaultSchema()
	require.NoError(b, err)
	model, err := classifier.Load(config.ModelConfig{Path: modelPath, Format: config.FormatLinear}, schema)
	require.NoError(b, err)
	defer model.Close()

	parser, err := intake.NewPayloadParser(schema)
	require.NoError(b, err)

	log := logger.NewZapAdapter(zap.NewNop())
	svc := evaluation.NewService(features.NewEncoder(schema), model, log)
	h := evaluateloanapplication.NewHandler(evaluateloanapplication.DefaultConfig(), svc, parser, log)

	input := &evaluateloanapplication.Input{ApplicationID: "bench", Applicant: applicant()}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := h.Execute(ctx, input); err != nil {
			b.Fatal(err)
		}
	}
}
