package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"AgriPolicy/internal/agent"
	"AgriPolicy/internal/indicator"
	"AgriPolicy/internal/rag/index"
	"AgriPolicy/internal/rag/pipeline"
	"AgriPolicy/pkg/logger"
)

// handler exposes the orchestrator and the indexing pipeline over REST.
type handler struct {
	orchestrator *agent.Orchestrator
	indexing     *pipeline.IndexingPipeline
	catalog      *indicator.Catalog
	log          *logger.Logger
}

func newHandler(orchestrator *agent.Orchestrator, indexing *pipeline.IndexingPipeline, catalog *indicator.Catalog, log *logger.Logger) *handler {
	return &handler{orchestrator: orchestrator, indexing: indexing, catalog: catalog, log: log}
}

type answerRequest struct {
	Question string `json:"question" binding:"required"`
}

func (h *handler) answer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	traceID := uuid.New().String()
	log := h.log.WithTrace(traceID)
	log.WithField("question_length", len(req.Question)).Info("answering query")

	resp, err := h.orchestrator.Answer(c.Request.Context(), req.Question)
	if err != nil {
		switch {
		case errors.Is(err, index.ErrNotReady), errors.Is(err, pipeline.ErrEmbedderMismatch):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "trace_id": traceID})
		default:
			log.WithError(err).Error("query failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "trace_id": traceID})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"trace_id": traceID, "response": resp})
}

type indexRequest struct {
	// Sources are file paths, http(s) URLs, or s3://<key> object keys.
	Sources []string `json:"sources" binding:"required"`
}

func (h *handler) indexDocuments(c *gin.Context) {
	var req indexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.indexing.Run(c.Request.Context(), req.Sources)
	if err != nil {
		h.log.WithError(err).Error("indexing run failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	rejected := make([]gin.H, 0, len(report.Failed))
	for _, f := range report.Failed {
		rejected = append(rejected, gin.H{"source": f.DocumentID, "reason": f.Reason})
	}
	c.JSON(http.StatusOK, gin.H{
		"generation": report.Generation,
		"documents":  report.DocumentsIngested,
		"chunks":     report.ChunksIndexed,
		"rejected":   rejected,
	})
}

func (h *handler) listIndicators(c *gin.Context) {
	entries := h.catalog.Entries()
	out := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		out = append(out, gin.H{
			"sdg_indicator": e.SDGIndicator,
			"series_code":   e.SeriesCode,
			"name":          e.Name,
			"unit":          e.Unit,
			"tags":          e.Tags,
		})
	}
	c.JSON(http.StatusOK, gin.H{"indicators": out})
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
