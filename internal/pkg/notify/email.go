package notify

import (
	"fmt"
	"log/slog"
	"strings"

	"taskhub/internal/config"

	"gopkg.in/gomail.v2"
)

// EmailNotifier 实现邮件通知。
type EmailNotifier struct {
	cfg    *config.EmailConfig
	logger *slog.Logger
}

// NewEmailNotifier 创建一个新的邮件通知器。
func NewEmailNotifier(cfg *config.EmailConfig, logger *slog.Logger) *EmailNotifier {
	return &EmailNotifier{
		cfg:    cfg,
		logger: logger,
	}
}

// SendWelcome 发送注册欢迎邮件。
//
// SMTP 未配置或收件人为空时静默跳过，注册流程不受影响。
func (n *EmailNotifier) SendWelcome(toEmail, name string) error {
	if n.cfg.SMTPHost == "" || n.cfg.SMTPUser == "" || n.cfg.FromEmail == "" {
		n.logger.Warn("email config missing, skip welcome mail")
		return nil
	}
	if strings.TrimSpace(toEmail) == "" {
		n.logger.Warn("email recipient empty, skip welcome mail")
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.FromEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", "[TaskHub] Welcome")
	m.SetBody("text/html", n.buildWelcomeBody(name))

	d := gomail.NewDialer(n.cfg.SMTPHost, n.cfg.SMTPPort, n.cfg.SMTPUser, n.cfg.SMTPPass)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("welcome email sent", slog.String("to", toEmail))
	return nil
}

func (n *EmailNotifier) buildWelcomeBody(name string) string {
	display := strings.TrimSpace(name)
	if display == "" {
		display = "there"
	}
	var b strings.Builder
	b.WriteString(`<div style="font-family:sans-serif;max-width:480px">`)
	fmt.Fprintf(&b, "<h2>Hi %s,</h2>", display)
	b.WriteString("<p>Your TaskHub account is ready. Log in to start organizing your tasks.</p>")
	b.WriteString("<p>— The TaskHub team</p>")
	b.WriteString("</div>")
	return b.String()
}
