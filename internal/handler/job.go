package handler

import (
	"errors"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/amirhamza8927/aiseo-ai-backend/internal/model"
	"github.com/amirhamza8927/aiseo-ai-backend/internal/service"
	"github.com/amirhamza8927/aiseo-ai-backend/internal/store"
	"github.com/amirhamza8927/aiseo-ai-backend/pkg/response"
)

type JobHandler struct {
	service   *service.JobService
	validator *validator.Validate
}

func NewJobHandler(svc *service.JobService, v *validator.Validate) *JobHandler {
	return &JobHandler{
		service:   svc,
		validator: v,
	}
}

// Create handles POST /api/jobs
func (h *JobHandler) Create(c *fiber.Ctx) error {
	var req model.CreateJobRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Unprocessable(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.Unprocessable(c, "Validation failed", formatValidationErrors(err))
	}

	rec, err := h.service.CreateJob(c.UserContext(), &req)
	if err != nil {
		return h.fail(c, err)
	}

	if req.ShouldRunImmediately() {
		started, _, err := h.service.StartJob(c.UserContext(), rec.ID)
		if err != nil {
			return h.fail(c, err)
		}
		rec = started
	}

	return response.Created(c, model.JobResponse{Job: model.NewJobSummary(rec)})
}

// Run handles POST /api/jobs/:jobId/run
func (h *JobHandler) Run(c *fiber.Ctx) error {
	jobID := c.Params("jobId")

	rec, queued, err := h.service.StartJob(c.UserContext(), jobID)
	if err != nil {
		return h.fail(c, err)
	}

	body := model.JobResponse{Job: model.NewJobSummary(rec)}
	if queued {
		return response.Accepted(c, body)
	}
	return response.OK(c, body)
}

// Get handles GET /api/jobs/:jobId
func (h *JobHandler) Get(c *fiber.Ctx) error {
	rec, err := h.service.GetJob(c.UserContext(), c.Params("jobId"))
	if err != nil {
		return h.fail(c, err)
	}
	return response.OK(c, model.JobResponse{Job: model.NewJobSummary(rec)})
}

// Result handles GET /api/jobs/:jobId/result. format=markdown returns the
// frontmatter document and format=html the rendered body.
func (h *JobHandler) Result(c *fiber.Ctx) error {
	rec, err := h.service.GetResult(c.UserContext(), c.Params("jobId"))
	if errors.Is(err, service.ErrJobFailed) {
		return response.Error(c, fiber.StatusConflict, response.CodeJobFailed, "Job failed", fiber.Map{"error": rec.Error})
	}
	if err != nil {
		return h.fail(c, err)
	}

	switch c.Query("format", "json") {
	case "json":
		return response.OK(c, model.JobResultResponse{JobID: rec.ID, Status: rec.Status, Result: rec.Result})
	case "markdown", "md":
		c.Set(fiber.HeaderContentType, "text/markdown; charset=utf-8")
		return c.SendString(rec.Result.Document)
	case "html":
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.SendString(rec.Result.ArticleHTML)
	default:
		return response.Unprocessable(c, "Unsupported format", fiber.Map{"format": "json|markdown|html"})
	}
}

// Checkpoint handles GET /api/jobs/:jobId/checkpoint
func (h *JobHandler) Checkpoint(c *fiber.Ctx) error {
	state, err := h.service.GetCheckpoint(c.UserContext(), c.Params("jobId"))
	if err != nil {
		return h.fail(c, err)
	}
	return response.OK(c, model.CheckpointResponse{
		JobID:         state.JobID,
		CurrentStage:  state.CurrentStage,
		RevisionsLeft: state.RevisionsLeft,
		LastError:     state.LastError,
		Report:        state.Report,
		RepairSpec:    state.RepairSpec,
		Outline:       state.Outline,
		KeywordPlan:   state.KeywordPlan,
	})
}

// Delete handles DELETE /api/jobs/:jobId
func (h *JobHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.DeleteJob(c.UserContext(), c.Params("jobId")); err != nil {
		return h.fail(c, err)
	}
	return response.NoContent(c)
}

func (h *JobHandler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return response.NotFound(c, "Job not found")
	case errors.Is(err, store.ErrNoCheckpoint):
		return response.NotFound(c, "No checkpoint for job")
	case errors.Is(err, store.ErrAlreadyRunning):
		return response.Conflict(c, response.CodeConflict, "Job is already running")
	case errors.Is(err, store.ErrAlreadyCompleted):
		return response.Conflict(c, response.CodeConflict, "Job already completed")
	case errors.Is(err, store.ErrAlreadyExists):
		return response.Conflict(c, response.CodeConflict, "Job already exists")
	case errors.Is(err, service.ErrNotCompleted):
		return response.Conflict(c, response.CodeNotCompleted, "Job not completed yet")
	case errors.Is(err, service.ErrJobFailed):
		return response.Conflict(c, response.CodeJobFailed, "Job failed")
	case errors.Is(err, service.ErrInvalidInput):
		return response.Unprocessable(c, err.Error(), nil)
	}
	log.Printf("Job request failed: %v", err)
	return response.ServiceError(c, "Internal server error")
}
