package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"loan-approval/internal/common/logger"
	"loan-approval/internal/evaluation"
	"loan-approval/internal/intake"
	"loan-approval/internal/models"
	"loan-approval/pkg/registry"
)

// ApplicationIDHeader carries the caller's application reference.
const ApplicationIDHeader = "X-Application-Id"

// Pinger is a dependency the health endpoint checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DecisionReader loads recorded decisions.
type DecisionReader interface {
	Get(ctx context.Context, id string) (*models.Decision, error)
}

type Handler struct {
	service   *evaluation.Service
	parser    *intake.PayloadParser
	labels    *intake.Labels
	form      intake.Form
	decisions DecisionReader
	checks    map[string]Pinger
	logger    logger.Logger
}

type HandlerOption func(*Handler)

func WithDecisions(r DecisionReader) HandlerOption {
	return func(h *Handler) { h.decisions = r }
}

func WithHealthCheck(name string, p Pinger) HandlerOption {
	return func(h *Handler) { h.checks[name] = p }
}

func NewHandler(service *evaluation.Service, parser *intake.PayloadParser, log logger.Logger, opts ...HandlerOption) *Handler {
	schema := service.Schema()
	h := &Handler{
		service: service,
		parser:  parser,
		labels:  intake.NewLabels(schema),
		form:    intake.FormDefinition(schema),
		checks:  make(map[string]Pinger),
		logger:  log.WithFields(map[string]interface{}{"component": "api"}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Register(app *fiber.App) {
	api := app.Group("/api/v1")

	api.Get("/health", h.Health)
	api.Get("/form", h.Form)
	api.Get("/schema", h.Schema)
	api.Post("/evaluate", h.Evaluate)
	api.Post("/evaluate/form", h.EvaluateForm)
	if h.decisions != nil {
		api.Get("/decisions/:id", h.GetDecision)
	}
}

// Evaluate handles POST /evaluate with an applicant document of codes.
func (h *Handler) Evaluate(c *fiber.Ctx) error {
	record, err := h.parser.Parse(c.Body())
	if err != nil {
		return err
	}

	result, err := h.service.EvaluateRequest(c.UserContext(), evaluation.Request{
		ApplicationID: c.Get(ApplicationIDHeader),
		Channel:       models.ChannelAPI,
		Record:        record,
		Persist:       true,
	})
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// EvaluateForm handles POST /evaluate/form with display labels. Omitted
// fields take the form defaults and numbers are clamped.
func (h *Handler) EvaluateForm(c *fiber.Ctx) error {
	values := intake.DefaultFormValues()
	if err := c.BodyParser(&values); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid form payload")
	}

	record, err := values.Record(h.labels)
	if err != nil {
		return err
	}

	result, err := h.service.EvaluateRequest(c.UserContext(), evaluation.Request{
		ApplicationID: c.Get(ApplicationIDHeader),
		Channel:       models.ChannelForm,
		Record:        record,
		Persist:       true,
	})
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (h *Handler) Form(c *fiber.Ctx) error {
	return c.JSON(h.form)
}

type schemaResponse struct {
	Version      string                    `json:"version"`
	ModelVersion string                    `json:"modelVersion"`
	Features     []string                  `json:"features"`
	Numeric      []registry.NumericColumn  `json:"numeric"`
	Categories   []registry.CategoryColumn `json:"categories"`
}

func (h *Handler) Schema(c *fiber.Ctx) error {
	schema := h.service.Schema()
	return c.JSON(schemaResponse{
		Version:      schema.Version,
		ModelVersion: h.service.ModelVersion(),
		Features:     schema.Names,
		Numeric:      schema.Numeric,
		Categories:   schema.Categories,
	})
}

func (h *Handler) GetDecision(c *fiber.Ctx) error {
	d, err := h.decisions.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(d)
}

// Health reports 503 when any registered dependency fails its ping.
func (h *Handler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status := "healthy"
	checks := make(map[string]string, len(h.checks))
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			checks[name] = err.Error()
			status = "degraded"
			continue
		}
		checks[name] = "ok"
	}

	code := fiber.StatusOK
	if status != "healthy" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status":        status,
		"modelVersion":  h.service.ModelVersion(),
		"schemaVersion": h.service.Schema().Version,
		"checks":        checks,
		"time":          time.Now().UTC(),
	})
}
