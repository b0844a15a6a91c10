package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"engagement_tracker/internal/domain"
	"engagement_tracker/internal/scheduler"
)

type Trigger interface {
	TriggerNow(ctx context.Context) (*domain.RunSummary, error)
}

type RunLog interface {
	Latest(ctx context.Context) (*domain.ScrapeRun, error)
}

type RunHandler struct {
	trigger Trigger
	runs    RunLog
	logger  *slog.Logger
}

func NewRunHandler(trigger Trigger, runs RunLog, logger *slog.Logger) *RunHandler {
	return &RunHandler{
		trigger: trigger,
		runs:    runs,
		logger:  logger,
	}
}

// RunNow executes one scheduler invocation and responds with its summary.
func (h *RunHandler) RunNow(c *gin.Context) {
	summary, err := h.trigger.TriggerNow(c.Request.Context())
	if errors.Is(err, scheduler.ErrRunInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger.Error("run now failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *RunHandler) Latest(c *gin.Context) {
	run, err := h.runs.Latest(c.Request.Context())
	if err != nil {
		h.logger.Error("load latest run failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load latest run"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no runs recorded"})
		return
	}
	c.JSON(http.StatusOK, run)
}
