package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kota-pro/Scharade-HomePage/internal/mailer"
	"github.com/kota-pro/Scharade-HomePage/internal/middleware"
	"github.com/kota-pro/Scharade-HomePage/internal/model"
	"github.com/kota-pro/Scharade-HomePage/internal/security"
)

// ContactSender はお問い合わせメールの送信インターフェース。
type ContactSender interface {
	SendContact(ctx context.Context, msg mailer.ContactMessage) error
}

// ContactHandler はお問い合わせフォームのHTTPハンドラー。
type ContactHandler struct {
	sender    ContactSender // SMTP未設定の場合はnil
	sanitizer security.TextSanitizerService
}

// NewContactHandler はContactHandlerを生成する。senderはnilでもよい。
func NewContactHandler(sender ContactSender, sanitizer security.TextSanitizerService) *ContactHandler {
	return &ContactHandler{sender: sender, sanitizer: sanitizer}
}

// Send はお問い合わせを受け付け、通知メールと自動返信を送信する。
// POST /api/contact
func (h *ContactHandler) Send(w http.ResponseWriter, r *http.Request) {
	if h.sender == nil {
		middleware.WriteAPIError(w, model.NewServerMisconfiguredError())
		return
	}

	var body struct {
		Name        string `json:"name"`
		Furigana    string `json:"furigana"`
		Institution string `json:"institution"`
		Email       string `json:"email"`
		Inquiry     string `json:"inquiry"`
		Message     string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		middleware.WriteAPIError(w, model.NewValidationError("Invalid payload."))
		return
	}

	name := h.sanitizer.SanitizeText(body.Name)
	email := strings.TrimSpace(body.Email)
	if name == "" {
		middleware.WriteAPIError(w, model.NewValidationError("Name is required."))
		return
	}
	if email == "" || !strings.Contains(email, "@") {
		middleware.WriteAPIError(w, model.NewValidationError("A valid email is required."))
		return
	}

	msg := mailer.ContactMessage{
		Name:        name,
		Furigana:    h.sanitizer.SanitizeText(body.Furigana),
		Institution: h.sanitizer.SanitizeText(body.Institution),
		Email:       email,
		Inquiry:     h.sanitizer.SanitizeText(body.Inquiry),
		Message:     h.sanitizer.SanitizeText(body.Message),
	}

	if err := h.sender.SendContact(r.Context(), msg); err != nil {
		slog.Error("failed to send contact mail", slog.String("error", err.Error()))
		middleware.WriteAPIError(w, model.NewUpstreamError("Failed to send message."))
		return
	}

	writeOK(w)
}
