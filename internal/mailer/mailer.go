// Package mailer はお問い合わせフォームのメール送信を提供する。
package mailer

import (
	"context"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
)

// ContactMessage はお問い合わせフォームの内容。
// 各フィールドはサニタイズ済みであることを呼び出し側が保証する。
type ContactMessage struct {
	Name        string
	Furigana    string
	Institution string
	Email       string
	Inquiry     string
	Message     string
}

// sendFunc はsmtp.SendMail互換のシグネチャ。テストで差し替える。
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer はSMTP経由でお問い合わせメールを送信する。
type Mailer struct {
	addr     string // host:port
	username string
	password string
	from     string
	to       string

	send sendFunc
}

// Config はMailerの設定。
type Config struct {
	Addr     string
	Username string
	Password string
	From     string
	To       string
}

// NewMailer はMailerを生成する。
func NewMailer(config Config) *Mailer {
	return &Mailer{
		addr:     config.Addr,
		username: config.Username,
		password: config.Password,
		from:     config.From,
		to:       config.To,
		send:     smtp.SendMail,
	}
}

// SendContact はサイト運営者への通知メールと、送信者への自動返信メールを送る。
// 通知メールの送信に失敗した場合、自動返信は送らずエラーを返す。
func (m *Mailer) SendContact(ctx context.Context, msg ContactMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	auth := m.auth()

	notification := m.buildNotification(msg)
	if err := m.send(m.addr, auth, m.from, []string{m.to}, notification); err != nil {
		return fmt.Errorf("failed to send notification mail: %w", err)
	}

	autoReply := m.buildAutoReply(msg)
	if err := m.send(m.addr, auth, m.from, []string{msg.Email}, autoReply); err != nil {
		return fmt.Errorf("failed to send auto-reply mail: %w", err)
	}

	return nil
}

func (m *Mailer) auth() smtp.Auth {
	if m.username == "" {
		return nil
	}
	host := m.addr
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	return smtp.PlainAuth("", m.username, m.password, host)
}

// contactBody はお問い合わせ内容の本文ブロックを組み立てる。
// 通知メールと自動返信の両方で使う。
func contactBody(msg ContactMessage) string {
	detail := msg.Message
	if detail == "" {
		detail = "（入力なし）"
	}
	return strings.Join([]string{
		"--------------------------------------------------",
		"【お問い合わせ内容】",
		fmt.Sprintf("お名前: %s (%s) 様", msg.Name, msg.Furigana),
		fmt.Sprintf("所属: %s", msg.Institution),
		fmt.Sprintf("メールアドレス: %s", msg.Email),
		fmt.Sprintf("項目: %s", msg.Inquiry),
		fmt.Sprintf("詳細：%s", detail),
		"--------------------------------------------------",
	}, "\r\n")
}

// buildNotification はサイト運営者向けの通知メールを組み立てる。
func (m *Mailer) buildNotification(msg ContactMessage) []byte {
	subject := fmt.Sprintf("【HPお問い合わせ】%s様より", msg.Name)
	return buildMessage(m.from, m.to, msg.Email, subject, contactBody(msg)+"\r\n")
}

// buildAutoReply は送信者向けの自動返信メールを組み立てる。
func (m *Mailer) buildAutoReply(msg ContactMessage) []byte {
	subject := "お問い合わせありがとうございました"
	body := fmt.Sprintf(
		"%s 様\r\n\r\nお問い合わせありがとうございました。\r\n以下の内容で承りました。内容を確認し、折り返しご連絡いたします。\r\n\r\n%s\r\n\r\n※このメールはシステムからの自動返信です。\r\n",
		msg.Name, contactBody(msg),
	)
	return buildMessage(m.from, msg.Email, "", subject, body)
}

// buildMessage はUTF-8対応のRFC 5322メッセージを組み立てる。
// 件名は日本語を含むためMIMEエンコードする。
func buildMessage(from, to, replyTo, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	if replyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\r\n", replyTo)
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.BEncoding.Encode("UTF-8", subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
