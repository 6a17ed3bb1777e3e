package auth

import (
	"context"
	"log/slog"
)

// OTPSender generates and delivers a one-time password to a phone
// number and later validates what the user typed back.
type OTPSender interface {
	Send(ctx context.Context, phone string) error
	Validate(ctx context.Context, phone, otp string) bool
}

// devOTPCode is the fixed code accepted by the development sender. No
// SMS gateway is wired yet.
const devOTPCode = "123456"

// DevOTPSender accepts a fixed code and logs instead of sending SMS.
type DevOTPSender struct {
	logger *slog.Logger
}

// NewDevOTPSender creates the development sender.
func NewDevOTPSender(logger *slog.Logger) *DevOTPSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &DevOTPSender{logger: logger}
}

// Send logs the OTP that a real gateway would deliver.
func (s *DevOTPSender) Send(_ context.Context, phone string) error {
	s.logger.Info("OTP issued", "phone", phone)
	return nil
}

// Validate accepts only the fixed development code.
func (s *DevOTPSender) Validate(_ context.Context, phone, otp string) bool {
	s.logger.Debug("Validating OTP", "phone", phone)
	return otp == devOTPCode
}
