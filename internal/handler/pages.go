package handler

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/kota-pro/Scharade-HomePage/internal/middleware"
)

// editPageTemplate はポートフォリオ編集ページの最小シェル。
// 実際の編集UIはフロントエンド側のJSが /api/portfolio/* を叩いて構成する。
var editPageTemplate = template.Must(template.New("edit").Parse(`<!DOCTYPE html>
<html lang="ja">
<head>
<meta charset="utf-8">
<title>ポートフォリオ編集</title>
</head>
<body>
<main id="portfolio-edit" data-user-id="{{.UserID}}" data-portfolio-id="{{.PortfolioID}}">
<h1>ポートフォリオ編集</h1>
<p>{{.Name}}さんとしてログイン中</p>
</main>
<script src="/assets/portfolio-edit.js" defer></script>
</body>
</html>
`))

// PagesHandler はサーバーレンダリングするページのハンドラー。
type PagesHandler struct{}

// NewPagesHandler はPagesHandlerを生成する。
func NewPagesHandler() *PagesHandler {
	return &PagesHandler{}
}

// EditPage はポートフォリオ編集ページのシェルを返す。
// 未ログイン時の制御はRequireLoginRedirectミドルウェアが行う。
// GET /portfolio/edit
func (h *PagesHandler) EditPage(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := editPageTemplate.Execute(w, map[string]string{
		"UserID":      user.ID,
		"PortfolioID": user.PortfolioID,
		"Name":        user.Name,
	})
	if err != nil {
		slog.Error("failed to render edit page", slog.String("error", err.Error()))
	}
}
