package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kota-pro/Scharade-HomePage/internal/mailer"
	"github.com/kota-pro/Scharade-HomePage/internal/security"
)

type mockContactSender struct {
	sendFn func(ctx context.Context, msg mailer.ContactMessage) error
}

var _ ContactSender = (*mockContactSender)(nil)

func (m *mockContactSender) SendContact(ctx context.Context, msg mailer.ContactMessage) error {
	if m.sendFn != nil {
		return m.sendFn(ctx, msg)
	}
	return nil
}

func contactRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestContactHandler_Send_Success(t *testing.T) {
	var got mailer.ContactMessage
	sender := &mockContactSender{
		sendFn: func(ctx context.Context, msg mailer.ContactMessage) error {
			got = msg
			return nil
		},
	}
	h := NewContactHandler(sender, security.NewTextSanitizer())

	body := `{
		"name": "山田太郎",
		"furigana": "やまだたろう",
		"institution": "〇〇大学",
		"email": "taro@example.com",
		"inquiry": "展示について",
		"message": "<b>よろしく</b>お願いします"
	}`
	w := httptest.NewRecorder()
	h.Send(w, contactRequest(body))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if got.Name != "山田太郎" || got.Email != "taro@example.com" {
		t.Errorf("message = %+v", got)
	}
	if got.Message != "よろしくお願いします" {
		t.Errorf("message body = %q, tags should be stripped", got.Message)
	}
	if got.Furigana != "やまだたろう" || got.Inquiry != "展示について" {
		t.Errorf("message = %+v", got)
	}
}

func TestContactHandler_Send_NilSender(t *testing.T) {
	h := NewContactHandler(nil, security.NewTextSanitizer())

	w := httptest.NewRecorder()
	h.Send(w, contactRequest(`{"name":"Taro","email":"taro@example.com"}`))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Server misconfigured.") {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestContactHandler_Send_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"名前なし", `{"email":"taro@example.com","message":"hi"}`, "Name is required."},
		{"タグのみの名前", `{"name":"<script></script>","email":"taro@example.com"}`, "Name is required."},
		{"emailなし", `{"name":"Taro","message":"hi"}`, "A valid email is required."},
		{"不正なemail", `{"name":"Taro","email":"not-an-email"}`, "A valid email is required."},
		{"壊れたJSON", `{broken`, "Invalid payload."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			sender := &mockContactSender{
				sendFn: func(ctx context.Context, msg mailer.ContactMessage) error {
					called = true
					return nil
				},
			}
			h := NewContactHandler(sender, security.NewTextSanitizer())

			w := httptest.NewRecorder()
			h.Send(w, contactRequest(tt.body))

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.want) {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.want)
			}
			if called {
				t.Error("mailer must not be called for invalid input")
			}
		})
	}
}

func TestContactHandler_Send_MailerFailure(t *testing.T) {
	sender := &mockContactSender{
		sendFn: func(ctx context.Context, msg mailer.ContactMessage) error {
			return errors.New("smtp: connection refused")
		},
	}
	h := NewContactHandler(sender, security.NewTextSanitizer())

	w := httptest.NewRecorder()
	h.Send(w, contactRequest(`{"name":"Taro","email":"taro@example.com","message":"hi"}`))

	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Failed to send message.") {
		t.Errorf("body = %q", w.Body.String())
	}
	if strings.Contains(w.Body.String(), "connection refused") {
		t.Error("SMTP error detail must not be leaked to the client")
	}
}
