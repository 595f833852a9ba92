package email

import (
	"context"
	"errors"
)

// Sender define la interfaz para envio de correos de verificacion y reset.
type Sender interface {
	SendVerification(ctx context.Context, toEmail string, link string) error
	SendPasswordReset(ctx context.Context, toEmail string, link string) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) SendVerification(context.Context, string, string) error {
	return s.err()
}

func (s *disabledSender) SendPasswordReset(context.Context, string, string) error {
	return s.err()
}

func (s *disabledSender) err() error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}
