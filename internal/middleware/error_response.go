package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/kota-pro/Scharade-HomePage/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 成功レスポンスの {ok: true, ...} と対になる。
type ErrorResponseBody struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// WriteAPIError は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteAPIError(w http.ResponseWriter, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(apiErr.Status)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		OK:      false,
		Message: apiErr.Message,
	})
}

// WriteError はエラーを適切なHTTPレスポンスに変換して書き込む。
// *model.APIErrorはそのまま、それ以外は詳細をログのみに記録して500を返す。
func WriteError(w http.ResponseWriter, err error) {
	if apiErr, ok := model.AsAPIError(err); ok {
		WriteAPIError(w, apiErr)
		return
	}
	slog.Error("unhandled error", slog.String("error", err.Error()))
	WriteInternalServerError(w)
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteAPIError(w, &model.APIError{
		Status:   http.StatusInternalServerError,
		Message:  "Internal server error.",
		Category: "system",
	})
}
