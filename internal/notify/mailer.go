package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
)

var ErrNotConfigured = errors.New("email not configured")

// Mailer 通过 SMTP（默认 Gmail smtp.gmail.com:587）发送 HTML 邮件，
// 支持单个文件附件。SMTP 账号缺省时 Enabled 为 false，发送直接报错。
type Mailer struct {
	host     string
	port     int
	username string
	password string
	baseURL  string // 操作链接前缀，例如 https://labsheets.example.com
}

func NewMailer(host string, port int, username, password, baseURL string) *Mailer {
	if host == "" {
		host = "smtp.gmail.com"
	}
	if port == 0 {
		port = 587
	}
	return &Mailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// Enabled SMTP 账号是否配置齐全
func (m *Mailer) Enabled() bool {
	return m.username != "" && m.password != ""
}

func (m *Mailer) Notify(ctx context.Context, n Notification) error {
	subject := fmt.Sprintf("%s %s Ready - %s", n.SheetType, sheetNumber(n.PracticalNumber, n.UseZeroPadding), n.ModuleName)
	var body bytes.Buffer
	data := struct {
		Notification
		Number      string
		NextNumber  string
		GenerateURL string
		SkipURL     string
	}{
		Notification: n,
		Number:       sheetNumber(n.PracticalNumber, n.UseZeroPadding),
		NextNumber:   sheetNumber(n.PracticalNumber+1, n.UseZeroPadding),
		GenerateURL:  m.baseURL + "/api/generate/" + n.GenerateToken,
		SkipURL:      m.baseURL + "/api/skip/" + n.SkipToken,
	}
	if err := notificationTmpl.Execute(&body, data); err != nil {
		return err
	}
	return m.send(ctx, n.ToEmail, subject, body.String(), "")
}

// SendConfirmation 发送生成完成确认邮件，可附带生成的文档
func (m *Mailer) SendConfirmation(ctx context.Context, c Confirmation) error {
	subject := fmt.Sprintf("%s %s Generated - %s", c.SheetType, sheetNumber(c.PracticalNumber, c.UseZeroPadding), c.ModuleName)
	var body bytes.Buffer
	data := struct {
		Confirmation
		Number string
		Next   string
	}{
		Confirmation: c,
		Number:       sheetNumber(c.PracticalNumber, c.UseZeroPadding),
		Next:         sheetNumber(c.NextNumber, c.UseZeroPadding),
	}
	if err := confirmationTmpl.Execute(&body, data); err != nil {
		return err
	}
	return m.send(ctx, c.ToEmail, subject, body.String(), c.AttachmentPath)
}

// send 拼 MIME 报文并经 SMTP 发出。attachmentPath 非空时拼 multipart/mixed。
func (m *Mailer) send(ctx context.Context, to, subject, htmlBody, attachmentPath string) error {
	if !m.Enabled() {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", m.username)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")

	if attachmentPath == "" {
		msg.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n\r\n")
		msg.WriteString(htmlBody)
	} else {
		const boundary = "labsheet-mime-boundary"
		fmt.Fprintf(&msg, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", boundary)

		fmt.Fprintf(&msg, "--%s\r\n", boundary)
		msg.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n\r\n")
		msg.WriteString(htmlBody)
		msg.WriteString("\r\n")

		content, err := os.ReadFile(attachmentPath)
		if err != nil {
			return fmt.Errorf("read attachment: %w", err)
		}
		fmt.Fprintf(&msg, "--%s\r\n", boundary)
		msg.WriteString("Content-Type: application/octet-stream\r\n")
		msg.WriteString("Content-Transfer-Encoding: base64\r\n")
		fmt.Fprintf(&msg, "Content-Disposition: attachment; filename=%q\r\n\r\n", filepath.Base(attachmentPath))
		msg.WriteString(wrapBase64(base64.StdEncoding.EncodeToString(content)))
		msg.WriteString("\r\n")
		fmt.Fprintf(&msg, "--%s--\r\n", boundary)
	}

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	auth := smtp.PlainAuth("", m.username, m.password, m.host)
	return smtp.SendMail(addr, auth, m.username, []string{to}, msg.Bytes())
}

// wrapBase64 按 RFC 要求每 76 字符折行
func wrapBase64(s string) string {
	var b strings.Builder
	for len(s) > 76 {
		b.WriteString(s[:76])
		b.WriteString("\r\n")
		s = s[76:]
	}
	b.WriteString(s)
	return b.String()
}

func sheetNumber(n int, zeroPad bool) string {
	if zeroPad {
		return fmt.Sprintf("%02d", n)
	}
	return fmt.Sprintf("%d", n)
}

var notificationTmpl = template.Must(template.New("notification").Parse(`<!DOCTYPE html>
<html>
<body style="font-family:-apple-system,'Segoe UI',Roboto,sans-serif;background:#f6f8fa;margin:0;padding:24px;">
  <div style="background:#fff;max-width:520px;margin:0 auto;padding:32px;border-radius:12px;">
    <h2 style="margin-top:0;">Your lab sheet is ready to generate!</h2>
    <p>Hi <strong>{{.StudentName}}</strong>,</p>
    <p><strong>{{.ModuleName}}</strong> ({{.ModuleCode}}) - {{.SheetType}} #{{.Number}}<br>
       {{.DayName}} at {{.LabTime}}</p>
    <a href="{{.GenerateURL}}"
       style="display:block;background:#667eea;color:#fff;text-decoration:none;padding:16px 24px;border-radius:8px;text-align:center;font-weight:600;margin-bottom:12px;">
       Generate Now</a>
    <a href="{{.SkipURL}}"
       style="display:block;background:#6a737d;color:#fff;text-decoration:none;padding:14px 24px;border-radius:8px;text-align:center;font-weight:600;">
       Skip This Week</a>
    <p style="color:#586069;font-size:14px;">
      Generate: the sheet is created automatically, emailed to you as an attachment and backed up to OneDrive.
      Next practical will be #{{.NextNumber}}.<br>
      Skip: no sheet this week, next week will still be {{.SheetType}} #{{.Number}}.
    </p>
    <p style="color:#6a737d;font-size:12px;">Powered by Lab Sheet Generator. This is an automated email, please do not reply.</p>
  </div>
</body>
</html>`))

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html>
<body style="font-family:-apple-system,'Segoe UI',Roboto,sans-serif;background:#f6f8fa;margin:0;padding:24px;">
  <div style="background:#fff;max-width:520px;margin:0 auto;padding:32px;border-radius:12px;">
    <h2 style="margin-top:0;color:#28a745;">Sheet Generated!</h2>
    <p>Hi <strong>{{.StudentName}}</strong>,</p>
    <p>Your lab sheet <strong>{{.SheetType}} #{{.Number}}</strong> for <strong>{{.ModuleName}}</strong> has been generated successfully.</p>
    {{if .AttachmentPath}}<p>The sheet is attached to this email.</p>{{end}}
    {{if .OneDriveLink}}
    <p><a href="{{.OneDriveLink}}"
       style="display:inline-block;background:#0078d4;color:#fff;text-decoration:none;padding:12px 24px;border-radius:6px;font-weight:600;">
       Open in OneDrive</a></p>
    {{end}}
    <p>Next practical will be <strong>#{{.Next}}</strong>.</p>
    <p style="color:#6a737d;font-size:12px;">Powered by Lab Sheet Generator</p>
  </div>
</body>
</html>`))
