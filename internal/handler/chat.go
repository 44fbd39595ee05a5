package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sinkapp/sink/internal/handler/dto"
	"github.com/sinkapp/sink/internal/service"
)

// ChatHandler handles the apartment group chat.
type ChatHandler struct {
	svc    *service.ChatService
	logger *slog.Logger
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(svc *service.ChatService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{svc: svc, logger: logger}
}

// List handles GET /api/v1/apartment/messages?limit=N.
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	_, apt, ok := requireApartment(w, r)
	if !ok {
		return
	}

	limit := service.DefaultMessageLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	msgs, err := h.svc.ListMessages(r.Context(), apt.Code, limit)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewListResponse(msgs))
}

// Post handles POST /api/v1/apartment/messages.
func (h *ChatHandler) Post(w http.ResponseWriter, r *http.Request) {
	principal, apt, ok := requireApartment(w, r)
	if !ok {
		return
	}

	var req dto.PostMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidJSON(w)
		return
	}

	msg, err := h.svc.PostMessage(r.Context(), apt.Code, principal.UserID, service.PostMessageInput{
		Text:           req.Text,
		AttachmentKey:  req.AttachmentKey,
		AttachmentType: req.AttachmentType,
		AttachmentName: req.AttachmentName,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}
