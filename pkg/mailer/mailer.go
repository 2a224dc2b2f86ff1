package mailer

import (
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Config carries SMTP settings for outbound notifications.
type Config struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer sends timetable notification emails over SMTP. When disabled it
// logs and drops messages instead of dialing.
type Mailer struct {
	cfg    Config
	dialer *gomail.Dialer
	logger *zap.Logger
}

// New builds a mailer from config.
func New(cfg Config, logger *zap.Logger) *Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Mailer{cfg: cfg, logger: logger}
	if cfg.Enabled {
		m.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	}
	return m
}

// Enabled reports whether messages will actually be dispatched.
func (m *Mailer) Enabled() bool {
	return m.cfg.Enabled && m.dialer != nil
}

// SendTimetableReady emails a download link for a freshly generated timetable.
func (m *Mailer) SendTimetableReady(to []string, departmentName, kind, downloadURL string) error {
	subject := fmt.Sprintf("%s timetable ready for %s", kind, departmentName)
	body := fmt.Sprintf(
		"Hello,\r\n\r\nThe %s timetable for %s has been generated.\r\nDownload it here: %s\r\n\r\nThis link expires automatically.\r\n",
		kind, departmentName, downloadURL,
	)
	return m.send(to, subject, body)
}

func (m *Mailer) send(to []string, subject, body string) error {
	if len(to) == 0 {
		return nil
	}
	if !m.Enabled() {
		m.logger.Sugar().Infow("mailer disabled, dropping message", "subject", subject, "recipients", len(to))
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
