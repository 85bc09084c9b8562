package services

import (
	"fmt"
	"net/smtp"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type MailService struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	Enabled  bool
}

func NewMailService() *MailService {
	host := os.Getenv("SMTP_HOST")
	port := os.Getenv("SMTP_PORT")
	user := os.Getenv("SMTP_USER")
	pass := os.Getenv("SMTP_PASS")
	from := os.Getenv("SMTP_FROM")

	enabled := host != "" && port != "" && user != "" && pass != "" && from != ""
	if !enabled {
		logrus.Warn("MailService disabled: missing SMTP environment variables")
	}

	return &MailService{
		Host:     host,
		Port:     port,
		Username: user,
		Password: pass,
		From:     from,
		Enabled:  enabled,
	}
}

func (s *MailService) sendAsync(to []string, subject string, body string) {
	if !s.Enabled {
		return
	}

	go func() {
		auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
		addr := fmt.Sprintf("%s:%s", s.Host, s.Port)

		mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
		msg := []byte(fmt.Sprintf("To: %s\r\n"+
			"From: OpinionHub <%s>\r\n"+
			"Subject: %s\r\n"+
			"%s\r\n%s", strings.Join(to, ","), s.From, subject, mime, body))

		err := smtp.SendMail(addr, auth, s.From, to, msg)
		if err != nil {
			logrus.Errorf("Failed to send email to %v: %v", to, err)
		} else {
			logrus.Infof("Email sent to %v: %s", to, subject)
		}
	}()
}

// SendOTPEmail mails the password-reset code. When the service is disabled
// the code is logged instead so local development stays usable; the HTTP
// layer answers the same either way to avoid leaking which emails exist.
func (s *MailService) SendOTPEmail(email, code string) {
	if !s.Enabled {
		logrus.Infof("MailService disabled, OTP for %s: %s", email, code)
		return
	}

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 480px; margin: 0 auto;">
			<h2>OpinionHub Password Reset</h2>
			<p>Your one-time password is:</p>
			<p style="font-size: 28px; font-weight: bold; letter-spacing: 6px;">%s</p>
			<p>It expires in 10 minutes. If you did not request a reset, you can ignore this email.</p>
		</div>`, code)

	s.sendAsync([]string{email}, "OpinionHub password reset code", body)
}
