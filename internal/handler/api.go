package handler

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"veracity-service/internal/models"
	"veracity-service/internal/repository"
	"veracity-service/internal/service"
	"veracity-service/internal/signal"
	"veracity-service/internal/social"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// VerifyResponse is the flattened verdict returned by POST /api/v1/verify
type VerifyResponse struct {
	InputType           string          `json:"input_type"`
	PrimaryAnalysis     signal.Result   `json:"primary_analysis"`
	SocialMediaAnalysis social.Snapshot `json:"social_media_analysis"`
	FinalVeracityScore  float64         `json:"final_veracity_score"`
	IsAuthentic         bool            `json:"is_authentic"`
	Conclusion          string          `json:"conclusion"`
	NewsRecordID        *int64          `json:"news_record_id,omitempty"`
}

// Handler handles HTTP requests
type Handler struct {
	verifier     *service.Verifier
	uploadDir    string
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewHandler creates a new API handler. Uploads are staged in uploadDir,
// or the system temp directory when empty. Request bodies larger than
// maxBodyBytes are rejected with 413; zero disables the limit.
func NewHandler(verifier *service.Verifier, uploadDir string, maxBodyBytes int64, logger *zap.Logger) *Handler {
	return &Handler{
		verifier:     verifier,
		uploadDir:    uploadDir,
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		// Verification
		api.POST("/verify", h.limitBody, h.Verify)
		api.POST("/verify/batch", h.limitBody, h.VerifyBatch)
		api.GET("/verify/jobs/:id", h.GetJobStatus)

		// Stored records
		api.GET("/records", h.ListRecords)
		api.GET("/records/stats", h.GetStats)
		api.GET("/records/:id", h.GetRecord)

		// Export
		api.GET("/export/csv", h.ExportCSV)
		api.GET("/export/json", h.ExportJSON)

		// Reference headlines
		api.GET("/sources/headlines", h.TrustedHeadlines)
	}

	// Legacy text-only endpoint
	r.POST("/news/verify", h.limitBody, h.VerifyNews)

	// Health check
	r.GET("/health", h.HealthCheck)
}

// limitBody caps the request body at maxBodyBytes
func (h *Handler) limitBody(c *gin.Context) {
	if h.maxBodyBytes > 0 && c.Request.Body != nil {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes)
	}
	c.Next()
}

// bodyTooLarge answers 413 when err came from an oversized body
func (h *Handler) bodyTooLarge(c *gin.Context, err error) bool {
	var maxErr *http.MaxBytesError
	if !errors.As(err, &maxErr) {
		return false
	}
	c.JSON(http.StatusRequestEntityTooLarge, gin.H{
		"error": "request body exceeds " + strconv.FormatInt(maxErr.Limit, 10) + " bytes",
	})
	return true
}

// Verify handles a JSON or multipart verification request
func (h *Handler) Verify(c *gin.Context) {
	var req models.VerifyRequest
	if err := c.ShouldBind(&req); err != nil {
		if h.bodyTooLarge(c, err) {
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	filePath, cleanup, err := h.stageUpload(c)
	if err != nil {
		if h.bodyTooLarge(c, err) {
			return
		}
		h.logger.Error("Failed to stage upload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
		return
	}
	defer cleanup()

	out, err := h.verifier.Verify(c.Request.Context(), service.Request{
		Kind:     req.InputKind,
		Data:     req.InputData,
		FilePath: filePath,
		Title:    req.Title,
		Source:   req.Source,
	})
	if err != nil {
		h.verifyError(c, err)
		return
	}

	v := out.Verdict
	c.JSON(http.StatusOK, VerifyResponse{
		InputType:           string(v.InputKind),
		PrimaryAnalysis:     v.Primary,
		SocialMediaAnalysis: v.Social,
		FinalVeracityScore:  v.FinalScore,
		IsAuthentic:         v.IsAuthentic,
		Conclusion:          v.Conclusion,
		NewsRecordID:        out.RecordID,
	})
}

// VerifyNews handles the legacy {title, content, source} text endpoint
func (h *Handler) VerifyNews(c *gin.Context) {
	var req models.NewsInput
	err := c.ShouldBindJSON(&req)
	if h.bodyTooLarge(c, err) {
		return
	}
	if err != nil || req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title and content are required"})
		return
	}

	out, err := h.verifier.Verify(c.Request.Context(), service.Request{
		Kind:   string(signal.KindText),
		Data:   req.Content,
		Title:  req.Title,
		Source: req.Source,
	})
	if err != nil {
		h.verifyError(c, err)
		return
	}

	rec, err := h.verifier.GetRecord(c.Request.Context(), *out.RecordID)
	if err != nil {
		h.logger.Error("Failed to load stored record", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load record"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":              rec.ID,
		"veracity_score":  rec.VeracityScore,
		"is_fake":         rec.IsFake,
		"analysis_report": rec.AnalysisReport,
	})
}

func (h *Handler) verifyError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
	case errors.Is(err, service.ErrPersistence):
		h.logger.Error("Failed to persist verdict", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store analysis record"})
	default:
		h.logger.Error("Verification failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "verification failed"})
	}
}

// stageUpload saves the multipart "file" field to disk. Requests without a file
// return an empty path.
func (h *Handler) stageUpload(c *gin.Context) (string, func(), error) {
	noop := func() {}
	if c.ContentType() != gin.MIMEMultipartPOSTForm {
		return "", noop, nil
	}

	file, err := c.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return "", noop, nil
	}
	if err != nil {
		return "", noop, err
	}

	tmp, err := os.CreateTemp(h.uploadDir, "upload-*"+filepath.Ext(file.Filename))
	if err != nil {
		return "", noop, err
	}
	path := tmp.Name()
	tmp.Close()

	cleanup := func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			h.logger.Warn("Failed to remove upload", zap.String("path", path), zap.Error(err))
		}
	}

	if err := c.SaveUploadedFile(file, path); err != nil {
		cleanup()
		return "", noop, err
	}

	h.logger.Debug("Upload staged",
		zap.String("filename", file.Filename),
		zap.Int64("size", file.Size))
	return path, cleanup, nil
}

// VerifyBatch handles batch verification
func (h *Handler) VerifyBatch(c *gin.Context) {
	var req models.BatchVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if h.bodyTooLarge(c, err) {
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	jobID, err := h.verifier.VerifyBatch(c.Request.Context(), req.Items)
	if err != nil {
		h.logger.Error("Failed to start batch job", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start batch job"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id":  jobID,
		"status":  models.JobPending,
		"message": "Batch verification started. Check /api/v1/verify/jobs/" + jobID + " for status",
	})
}

// GetJobStatus returns batch job status
func (h *Handler) GetJobStatus(c *gin.Context) {
	job, err := h.verifier.JobStatus(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to get job", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get job"})
		return
	}

	c.JSON(http.StatusOK, job)
}

// ListRecords returns stored records
func (h *Handler) ListRecords(c *gin.Context) {
	limit, err := queryInt(c, "limit", 100)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})
		return
	}

	records, err := h.verifier.ListRecords(c.Request.Context(), limit, offset)
	if err != nil {
		h.logger.Error("Failed to get records", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get records"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"total":   len(records),
	})
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("must be a non-negative integer")
	}
	return n, nil
}

// GetRecord returns one stored record
func (h *Handler) GetRecord(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record ID"})
		return
	}

	rec, err := h.verifier.GetRecord(c.Request.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to get record", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get record"})
		return
	}

	c.JSON(http.StatusOK, rec)
}

// GetStats returns record statistics
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.verifier.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ExportCSV exports records to CSV
func (h *Handler) ExportCSV(c *gin.Context) {
	records, err := h.verifier.ListRecords(c.Request.Context(), 0, 0)
	if err != nil {
		h.logger.Error("Failed to export CSV", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=news_records.csv")

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write([]string{"id", "title", "source", "published_date", "veracity_score", "is_fake"})

	for _, rec := range records {
		writer.Write([]string{
			strconv.FormatInt(rec.ID, 10),
			rec.Title,
			rec.Source,
			rec.PublishedDate.UTC().Format(time.RFC3339),
			strconv.FormatFloat(rec.VeracityScore, 'f', 4, 64),
			strconv.FormatBool(rec.IsFake),
		})
	}
}

// ExportJSON exports records to JSON
func (h *Handler) ExportJSON(c *gin.Context) {
	records, err := h.verifier.ListRecords(c.Request.Context(), 0, 0)
	if err != nil {
		h.logger.Error("Failed to export JSON", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	c.Header("Content-Type", "application/json")
	c.Header("Content-Disposition", "attachment; filename=news_records.json")

	encoder := json.NewEncoder(c.Writer)
	encoder.SetIndent("", "  ")
	encoder.Encode(records)
}

// TrustedHeadlines scrapes the configured trusted sources
func (h *Handler) TrustedHeadlines(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"sources": h.verifier.TrustedHeadlines(c.Request.Context()),
	})
}

// HealthCheck returns service health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "veracity-service",
		"version": Version,
	})
}
