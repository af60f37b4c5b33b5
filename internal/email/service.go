package email

import (
	"context"
	"fmt"

	gomail "gopkg.in/gomail.v2"

	"github.com/jwalitptl/studio-api/internal/config"
)

// Service sends operational alerts to the owner. Best effort; callers
// ignore failures.
type Service interface {
	SendAlert(ctx context.Context, subject, body string) error
}

type smtpService struct {
	cfg    config.EmailConfig
	dialer *gomail.Dialer
}

func NewService(cfg config.EmailConfig) Service {
	if !cfg.Enabled {
		return &noopService{}
	}
	return &smtpService{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (s *smtpService) SendAlert(ctx context.Context, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", s.cfg.OwnerTo)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}
	return nil
}

type noopService struct{}

func (*noopService) SendAlert(context.Context, string, string) error { return nil }
