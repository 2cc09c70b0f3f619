package handlers

import (
	"encoding/base64"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"pulgax-store/api/response"
	"pulgax-store/internal/apperrors"
	"pulgax-store/internal/services"
)

// MaxUploadSize caps image uploads at 5 MiB.
const MaxUploadSize = 5 << 20

type AdminHandler struct {
	statsService       *services.StatsService
	consistencyService *services.ConsistencyService
}

func NewAdminHandler(statsService *services.StatsService, consistencyService *services.ConsistencyService) *AdminHandler {
	return &AdminHandler{
		statsService:       statsService,
		consistencyService: consistencyService,
	}
}

// GET /api/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.statsService.Collect(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GET /api/validate
// Read-only report; nothing is repaired.
func (h *AdminHandler) Validate(c *gin.Context) {
	report, err := h.consistencyService.Run(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// POST /api/upload
// Accepts a multipart "file" and answers with an inline data URL.
func (h *AdminHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, apperrors.Invalid(apperrors.ErrValidation, "file", "a file is required"))
		return
	}
	if header.Size > MaxUploadSize {
		response.Error(c, apperrors.Invalid(apperrors.ErrValidation, "file", "file exceeds the 5 MiB limit"))
		return
	}

	f, err := header.Open()
	if err != nil {
		response.Error(c, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxUploadSize+1))
	if err != nil {
		response.Error(c, err)
		return
	}
	if len(data) > MaxUploadSize {
		response.Error(c, apperrors.Invalid(apperrors.ErrValidation, "file", "file exceeds the 5 MiB limit"))
		return
	}

	detected := mimetype.Detect(data)
	contentType, _, _ := strings.Cut(detected.String(), ";")
	if !strings.HasPrefix(contentType, "image/") {
		response.Error(c, apperrors.Invalid(apperrors.ErrValidation, "file", "only images are accepted, got %s", contentType))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":          "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data),
		"content_type": contentType,
		"size":         len(data),
	})
}
