package controllers

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aclio/aclio/llm"
	"github.com/aclio/aclio/models"
	"github.com/aclio/aclio/prompts"
	"github.com/aclio/aclio/utils"
)

// ChatController serves the coaching chat, whole or as server-sent events.
type ChatController struct {
	client llm.Client
	log    *zap.Logger
}

// NewChatController creates a new controller instance.
func NewChatController(client llm.Client, log *zap.Logger) *ChatController {
	if log == nil {
		log = zap.NewNop()
	}
	return &ChatController{client: client, log: log}
}

type chatRequest struct {
	Messages []llm.Message       `json:"messages" binding:"required"`
	GoalName string              `json:"goalName"`
	Profile  *models.UserProfile `json:"profile"`
	Stream   bool                `json:"stream"`
}

// Chat answers {reply}, or streams delta/done/error events when stream is set.
func (c *ChatController) Chat(ctx *gin.Context) {
	var req chatRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || len(req.Messages) == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40003, "Messages are required")
		return
	}
	if !c.client.Configured() {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "API key not configured")
		return
	}
	prompt := prompts.Chat(req.Messages, req.GoalName, req.Profile)
	if len(prompt.Messages) == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40003, "Messages are required")
		return
	}

	if req.Stream {
		c.stream(ctx, prompt)
		return
	}
	reply, err := c.client.Complete(ctx.Request.Context(), prompt)
	if err != nil {
		status, code, msg := describeUpstreamError(err)
		c.log.Error("chat upstream failed", zap.Int("code", code), zap.Error(err))
		utils.Error(ctx, status, code, msg)
		return
	}
	utils.Success(ctx, gin.H{"reply": reply})
}

// stream holds the response until the first delta so an upstream failure
// can still be answered with a JSON error and a proper status.
func (c *ChatController) stream(ctx *gin.Context, prompt llm.Request) {
	reqCtx := ctx.Request.Context()
	start := time.Now()
	deltas, errc := c.client.Stream(reqCtx, prompt)

	var first string
	select {
	case d, ok := <-deltas:
		if !ok {
			if err := <-errc; err != nil {
				status, code, msg := describeUpstreamError(err)
				c.log.Error("chat stream failed before first delta", zap.Int("code", code), zap.Error(err))
				utils.Error(ctx, status, code, msg)
				return
			}
		}
		first = d
	case <-reqCtx.Done():
		return
	}

	ctx.Header("Cache-Control", "no-cache")
	ctx.Header("Connection", "keep-alive")
	ctx.Header("X-Accel-Buffering", "no")

	var full strings.Builder
	pending := first
	ctx.Stream(func(w io.Writer) bool {
		if pending != "" {
			full.WriteString(pending)
			ctx.SSEvent("delta", gin.H{"text": pending})
			pending = ""
			return true
		}
		select {
		case d, ok := <-deltas:
			if ok {
				pending = d
				return true
			}
			if err := <-errc; err != nil {
				_, code, msg := describeUpstreamError(err)
				c.log.Warn("chat stream interrupted", zap.Int("code", code), zap.Error(err))
				ctx.SSEvent("error", utils.ErrorResponse{Error: msg, Code: code})
				return false
			}
			ctx.SSEvent("done", gin.H{"reply": full.String()})
			c.log.Info("chat stream served", zap.Duration("elapsed", time.Since(start)), zap.Int("chars", full.Len()))
			return false
		case <-reqCtx.Done():
			c.log.Info("chat stream cancelled by client")
			return false
		}
	})
}
