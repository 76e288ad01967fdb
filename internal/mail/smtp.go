// Package mail sends confirmation messages over SMTP.
package mail

import (
	"context"
	"fmt"

	"github.com/and161185/signup/internal/model"
	"github.com/caarlos0/env/v11"
	"gopkg.in/gomail.v2"
)

// Config holds SMTP settings, populated from the environment so credentials
// never travel through flags.
type Config struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM"`
	// ConfirmURL is the base the confirmation link is built on,
	// e.g. https://example.com/confirm.
	ConfirmURL string `env:"CONFIRM_URL"`
}

// ConfigFromEnv reads and validates SMTP settings from the environment.
func ConfigFromEnv() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse smtp env: %w", err)
	}
	if cfg.Host == "" {
		return Config{}, fmt.Errorf("missing SMTP_HOST")
	}
	if cfg.From == "" {
		return Config{}, fmt.Errorf("missing SMTP_FROM")
	}
	if cfg.ConfirmURL == "" {
		return Config{}, fmt.Errorf("missing CONFIRM_URL")
	}
	return cfg, nil
}

// SMTP delivers confirmation mail via gomail. It implements service.Mailer.
type SMTP struct {
	cfg    Config
	dialer *gomail.Dialer
}

// NewSMTP constructs an SMTP mailer from the given config.
func NewSMTP(cfg Config) *SMTP {
	return &SMTP{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// SendConfirmation delivers the confirmation code to the account's address.
// gomail has no context support, so the dial-and-send runs aside and the
// call returns early when ctx expires; the registration transaction then
// rolls back.
func (m *SMTP) SendConfirmation(ctx context.Context, acc *model.Account, tok *model.ConfirmationToken) error {
	msg := m.compose(acc, tok)

	done := make(chan error, 1)
	go func() { done <- m.dialer.DialAndSend(msg) }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func (m *SMTP) compose(acc *model.Account, tok *model.ConfirmationToken) *gomail.Message {
	link := fmt.Sprintf("%s?id=%s&code=%s", m.cfg.ConfirmURL, acc.ID, tok.Code)

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", acc.Email)
	msg.SetHeader("Subject", "Confirm your account")
	msg.SetBody("text/plain", fmt.Sprintf(
		"Hello %s,\n\nPlease confirm your account by opening the link below:\n\n%s\n\nThe link expires at %s.\n",
		acc.Username, link, tok.ExpiresAt.UTC().Format("2006-01-02 15:04 MST"),
	))
	return msg
}
