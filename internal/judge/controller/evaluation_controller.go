package controller

import (
	"context"

	"golfjudge/internal/judge/model"
	"golfjudge/internal/judge/scoring"
	appErr "golfjudge/pkg/errors"
	"golfjudge/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// EvaluationService is what the controller needs from the judge service.
type EvaluationService interface {
	Enqueue(ctx context.Context, task model.EvaluationTask) (string, error)
	Status(ctx context.Context, submissionID string) (model.EvaluationStatus, error)
}

// EvaluationController exposes evaluation status and code-golf scoring.
type EvaluationController struct {
	svc       EvaluationService
	languages []string
}

// NewEvaluationController creates a new controller.
func NewEvaluationController(svc EvaluationService, languages []string) *EvaluationController {
	return &EvaluationController{svc: svc, languages: languages}
}

// RegisterRoutes mounts the controller under r.
func (h *EvaluationController) RegisterRoutes(r gin.IRouter) {
	r.GET("/languages", h.Languages)
	r.POST("/evaluations", h.Submit)
	r.GET("/evaluations/:id", h.GetStatus)
	r.POST("/scores", h.Score)
	r.POST("/scores/compare", h.Compare)
}

// Submit enqueues an evaluation task.
func (h *EvaluationController) Submit(c *gin.Context) {
	var task model.EvaluationTask
	if err := c.ShouldBindJSON(&task); err != nil {
		response.Error(c, appErr.Wrapf(err, appErr.InvalidParams, "invalid request body: %v", err))
		return
	}
	id, err := h.svc.Enqueue(c.Request.Context(), task)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, gin.H{"submission_id": id, "status": model.StatusPending})
}

// GetStatus returns status for one submission.
func (h *EvaluationController) GetStatus(c *gin.Context) {
	submissionID := c.Param("id")
	if submissionID == "" {
		response.BadRequest(c, "Invalid submission id")
		return
	}
	status, err := h.svc.Status(c.Request.Context(), submissionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, status)
}

// Languages lists supported language keys.
func (h *EvaluationController) Languages(c *gin.Context) {
	response.Success(c, gin.H{"languages": h.languages})
}

type scoreRequest struct {
	Code     string `json:"code"`
	Language string `json:"language" binding:"required"`
}

// Score computes the code-golf score and format diagnostics of a snippet.
func (h *EvaluationController) Score(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErr.Wrapf(err, appErr.InvalidParams, "invalid request body: %v", err))
		return
	}
	response.Success(c, gin.H{
		"score":      scoring.CalculateScore(req.Code, req.Language),
		"validation": scoring.Validate(req.Code, req.Language),
	})
}

type compareRequest struct {
	First    string `json:"code1"`
	Second   string `json:"code2"`
	Language string `json:"language" binding:"required"`
}

// Compare reports how much shorter one submission is than another.
func (h *EvaluationController) Compare(c *gin.Context) {
	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErr.Wrapf(err, appErr.InvalidParams, "invalid request body: %v", err))
		return
	}
	response.Success(c, scoring.Compare(req.First, req.Second, req.Language))
}
