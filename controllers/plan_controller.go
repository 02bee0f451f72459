package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aclio/aclio/llm"
	"github.com/aclio/aclio/models"
	"github.com/aclio/aclio/prompts"
	"github.com/aclio/aclio/utils"
)

// PlanController forwards plan requests to the completion API.
type PlanController struct {
	client llm.Client
	log    *zap.Logger
}

// NewPlanController creates a new controller instance.
func NewPlanController(client llm.Client, log *zap.Logger) *PlanController {
	if log == nil {
		log = zap.NewNop()
	}
	return &PlanController{client: client, log: log}
}

type generateStepsRequest struct {
	Goal              string              `json:"goal" binding:"required"`
	Profile           *models.UserProfile `json:"profile"`
	Location          string              `json:"location"`
	AdditionalContext string              `json:"additionalContext"`
	Categories        []string            `json:"categories"`
}

type generateQuestionsRequest struct {
	Goal string `json:"goal" binding:"required"`
}

type stepRequest struct {
	GoalName string              `json:"goalName"`
	Step     *models.Step        `json:"step" binding:"required"`
	Profile  *models.UserProfile `json:"profile"`
}

// Health reports liveness and whether an API key is configured.
func (c *PlanController) Health(ctx *gin.Context) {
	utils.Success(ctx, gin.H{
		"status":           "ok",
		"timestamp":        time.Now().UTC(),
		"apiKeyConfigured": c.client.Configured(),
	})
}

// GenerateSteps returns {category, steps} for a goal.
func (c *PlanController) GenerateSteps(ctx *gin.Context) {
	var req generateStepsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || utils.Sanitize(req.Goal) == "" {
		utils.Error(ctx, http.StatusBadRequest, 40001, "Goal is required")
		return
	}
	c.completeJSON(ctx, "generate-steps", prompts.GenerateSteps(prompts.StepsInput{
		Goal:              req.Goal,
		Profile:           req.Profile,
		Location:          req.Location,
		AdditionalContext: req.AdditionalContext,
		Categories:        req.Categories,
	}))
}

// GenerateQuestions returns {questions} for a goal.
func (c *PlanController) GenerateQuestions(ctx *gin.Context) {
	var req generateQuestionsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || utils.Sanitize(req.Goal) == "" {
		utils.Error(ctx, http.StatusBadRequest, 40001, "Goal is required")
		return
	}
	c.completeJSON(ctx, "generate-questions", prompts.GenerateQuestions(req.Goal))
}

// ExpandStep returns a detailed guide for one step.
func (c *PlanController) ExpandStep(ctx *gin.Context) {
	req, ok := bindStep(ctx)
	if !ok {
		return
	}
	c.completeJSON(ctx, "expand-step", prompts.ExpandStep(req.GoalName, *req.Step))
}

// DoItForMe returns {result} produced by the model for one step.
func (c *PlanController) DoItForMe(ctx *gin.Context) {
	req, ok := bindStep(ctx)
	if !ok {
		return
	}
	c.completeJSON(ctx, "do-it-for-me", prompts.DoItForMe(req.GoalName, *req.Step, req.Profile))
}

func bindStep(ctx *gin.Context) (stepRequest, bool) {
	var req stepRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || req.Step == nil || utils.Sanitize(req.Step.Title) == "" {
		utils.Error(ctx, http.StatusBadRequest, 40002, "Step is required")
		return stepRequest{}, false
	}
	return req, true
}

// completeJSON runs the prompt, strips a code fence and returns the model's
// JSON unchanged.
func (c *PlanController) completeJSON(ctx *gin.Context, endpoint string, req llm.Request) {
	if !c.client.Configured() {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "API key not configured")
		return
	}
	start := time.Now()
	out, err := c.client.Complete(ctx.Request.Context(), req)
	if err != nil {
		c.upstreamFailure(ctx, endpoint, err)
		return
	}
	parsed, err := llm.ParseJSON(out)
	if err != nil {
		c.log.Error("model output is not JSON",
			zap.String("endpoint", endpoint),
			zap.Int("chars", len(out)),
			zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50003, "Failed to parse AI response")
		return
	}
	c.log.Info("completion served",
		zap.String("endpoint", endpoint),
		zap.String("provider", c.client.Provider()),
		zap.Duration("elapsed", time.Since(start)))
	utils.Success(ctx, parsed)
}

func (c *PlanController) upstreamFailure(ctx *gin.Context, endpoint string, err error) {
	status, code, msg := describeUpstreamError(err)
	c.log.Error("upstream request failed",
		zap.String("endpoint", endpoint),
		zap.Int("code", code),
		zap.Error(err))
	utils.Error(ctx, status, code, msg)
}

// describeUpstreamError maps an llm error onto the response status, code and message.
func describeUpstreamError(err error) (int, int, string) {
	var ue *llm.UpstreamError
	switch {
	case errors.Is(err, llm.ErrAPIKeyMissing):
		return http.StatusInternalServerError, 50001, "API key not configured"
	case errors.As(err, &ue):
		return http.StatusInternalServerError, 50002, ue.Message
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusInternalServerError, 50004, "AI service timed out"
	default:
		return http.StatusInternalServerError, 50004, "Failed to reach AI service"
	}
}
