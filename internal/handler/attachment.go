package handler

import (
	"log/slog"
	"net/http"

	"github.com/sinkapp/sink/internal/handler/dto"
	"github.com/sinkapp/sink/internal/service"
)

// AttachmentHandler hands out presigned URLs for chat images and task photos.
type AttachmentHandler struct {
	svc    *service.AttachmentService
	logger *slog.Logger
}

// NewAttachmentHandler creates a new AttachmentHandler.
func NewAttachmentHandler(svc *service.AttachmentService, logger *slog.Logger) *AttachmentHandler {
	return &AttachmentHandler{svc: svc, logger: logger}
}

// Upload handles POST /api/v1/apartment/attachments.
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	_, apt, ok := requireApartment(w, r)
	if !ok {
		return
	}

	var req dto.UploadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidJSON(w)
		return
	}

	upload, err := h.svc.PresignUpload(r.Context(), apt.Code, service.UploadInput{
		Filename:    req.Filename,
		ContentType: req.ContentType,
		Size:        req.Size,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.ToUploadResponse(upload))
}

// DownloadURL handles GET /api/v1/apartment/attachments/url?key=.
func (h *AttachmentHandler) DownloadURL(w http.ResponseWriter, r *http.Request) {
	_, apt, ok := requireApartment(w, r)
	if !ok {
		return
	}

	url, err := h.svc.DownloadURL(r.Context(), apt.Code, r.URL.Query().Get("key"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, &dto.DownloadResponse{URL: url})
}
