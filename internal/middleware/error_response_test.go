package middleware

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/kota-pro/Scharade-HomePage/internal/model"
)

func TestWriteAPIError_WireFormat(t *testing.T) {
	w := httptest.NewRecorder()
	WriteAPIError(w, model.NewEmailConflictError())

	if w.Code != 409 {
		t.Errorf("status = %d, want 409", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["ok"] != false {
		t.Errorf("ok = %v, want false", body["ok"])
	}
	if body["message"] != "Email already exists." {
		t.Errorf("message = %v", body["message"])
	}
	// カテゴリなどの内部情報はワイヤに出さない
	if _, exists := body["category"]; exists {
		t.Error("category must not leak to the wire")
	}
}

func TestWriteError_APIErrorPassedThrough(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, model.NewAuthRequiredError())

	if w.Code != 401 {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestWriteError_UnknownErrorBecomes500(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, errors.New("pq: connection refused"))

	if w.Code != 500 {
		t.Errorf("status = %d, want 500", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	// 内部エラーの詳細はレスポンスに含めない
	if body["message"] != "Internal server error." {
		t.Errorf("message = %v, want generic message", body["message"])
	}
}
