package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AartiThube09/Smart-Serveillance-System/internal/models"
	"github.com/AartiThube09/Smart-Serveillance-System/internal/storage"
	"github.com/AartiThube09/Smart-Serveillance-System/pkg/dto"
)

type DetectionHandler struct {
	db    *storage.PostgresStore
	minio *storage.MinIOStore
}

func NewDetectionHandler(db *storage.PostgresStore, minio *storage.MinIOStore) *DetectionHandler {
	return &DetectionHandler{db: db, minio: minio}
}

func (h *DetectionHandler) List(c *gin.Context) {
	var from, to *time.Time
	if fromStr := c.Query("from"); fromStr != "" {
		if t, err := time.Parse(time.RFC3339, fromStr); err == nil {
			from = &t
		}
	}
	if toStr := c.Query("to"); toStr != "" {
		if t, err := time.Parse(time.RFC3339, toStr); err == nil {
			to = &t
		}
	}

	category := c.Query("category")
	sessionID := c.Query("session_id")

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	records, total, err := h.db.ListDetections(c.Request.Context(), category, sessionID, from, to, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.DetectionResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, toDetectionResponse(rec))
	}

	c.JSON(http.StatusOK, dto.DetectionListResponse{Detections: resp, Total: total})
}

func (h *DetectionHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid detection id"})
		return
	}

	rec, err := h.db.GetDetection(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "detection not found"})
		return
	}

	c.JSON(http.StatusOK, toDetectionResponse(*rec))
}

// Snapshot proxies the evidence image from MinIO.
func (h *DetectionHandler) Snapshot(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid detection id"})
		return
	}

	rec, err := h.db.GetDetection(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if rec == nil || rec.SnapshotKey == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "snapshot not found"})
		return
	}

	data, err := h.minio.GetObject(c.Request.Context(), rec.SnapshotKey)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "snapshot not found"})
		return
	}

	c.Data(http.StatusOK, "image/jpeg", data)
}

// Stats returns per-category alert counts for the requested window
// (default last 24h).
func (h *DetectionHandler) Stats(c *gin.Context) {
	since := time.Now().Add(-24 * time.Hour)
	if sinceStr := c.Query("since"); sinceStr != "" {
		if t, err := time.Parse(time.RFC3339, sinceStr); err == nil {
			since = t
		}
	}

	counts, err := h.db.CategoryCounts(c.Request.Context(), since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.StatsResponse{
		Since:  since.Format(time.RFC3339),
		Counts: counts,
	})
}

func toDetectionResponse(rec models.DetectionRecord) dto.DetectionResponse {
	r := dto.DetectionResponse{
		ID:          rec.ID,
		SessionID:   rec.SessionID,
		Category:    string(rec.Category),
		Confidence:  rec.Confidence,
		Description: rec.Description,
		EmailSent:   rec.EmailSent,
		BeepPlayed:  rec.BeepPlayed,
		CreatedAt:   rec.CreatedAt.Format(time.RFC3339),
	}
	if rec.SnapshotKey != "" {
		r.SnapshotURL = "/v1/detections/" + rec.ID.String() + "/snapshot"
	}
	return r
}
