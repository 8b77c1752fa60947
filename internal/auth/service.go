package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"peopledesk.org/internal/mail"
)

const (
	defaultOTPTTL   = 2 * time.Minute
	defaultTokenTTL = time.Hour
)

// Service implements login and the email OTP second factor.
type Service struct {
	store    Store
	sender   mail.Sender
	now      func() time.Time
	otpTTL   time.Duration
	tokenTTL time.Duration
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithOTPTTL overrides the OTP lifetime.
func WithOTPTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.otpTTL = ttl
		}
	}
}

// WithTokenTTL overrides the session token lifetime.
func WithTokenTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// NewService constructs Service with optional configuration.
func NewService(store Store, sender mail.Sender, opts ...ServiceOption) *Service {
	svc := &Service{
		store:    store,
		sender:   sender,
		now:      time.Now,
		otpTTL:   defaultOTPTTL,
		tokenTTL: defaultTokenTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Login checks the email/password pair against the users table and returns
// the matching credential. Callers join in the employee profile themselves.
func (s *Service) Login(ctx context.Context, email, password string) (Credential, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Credential{}, ErrInvalidInput
	}
	cred, err := s.store.FindCredential(ctx, email)
	if err != nil {
		if err == ErrNotFound {
			return Credential{}, ErrInvalidCredentials
		}
		return Credential{}, err
	}
	if err := VerifyPassword(cred.PasswordHash, password); err != nil {
		return Credential{}, ErrInvalidCredentials
	}
	return cred, nil
}

// SendOTP generates a six-digit code, delivers it by mail and persists it.
// A row is only written after successful delivery, so an undeliverable code
// can never be verified.
func (s *Service) SendOTP(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return ErrInvalidInput
	}
	code, err := sixDigitCode()
	if err != nil {
		return err
	}
	expires := s.now().Add(s.otpTTL)

	msg := mail.Message{
		To:      email,
		Subject: "Your OTP Code",
		Body:    fmt.Sprintf("Your OTP code is: %s. It will expire in %d minutes.", code, int(s.otpTTL.Minutes())),
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send otp: %w", err)
	}
	if _, err := s.store.CreateOTP(ctx, OTPCode{Email: email, Code: code, ExpiresAt: expires}); err != nil {
		return err
	}
	return nil
}

// TokenResult carries the session token issued after OTP verification.
type TokenResult struct {
	Token     string
	ExpiresAt time.Time
}

// VerifyOTP checks the most recent code for the email, consumes it and
// issues a session token.
func (s *Service) VerifyOTP(ctx context.Context, email, code string) (TokenResult, error) {
	email = normalizeEmail(email)
	if email == "" || code == "" {
		return TokenResult{}, ErrInvalidInput
	}
	record, err := s.store.LatestOTP(ctx, email)
	if err != nil {
		return TokenResult{}, err
	}
	if record.Code != code {
		return TokenResult{}, ErrOTPMismatch
	}
	if s.now().After(record.ExpiresAt) {
		return TokenResult{}, ErrOTPExpired
	}

	// Consume the code so it cannot be replayed.
	_ = s.store.DeleteOTP(ctx, record.ID)

	roles := []string{"staff"}
	if cred, err := s.store.FindCredential(ctx, email); err == nil && cred.Role != "" {
		roles = []string{cred.Role}
	}
	token, err := GenerateToken(email, roles, s.tokenTTL)
	if err != nil {
		return TokenResult{}, err
	}
	return TokenResult{Token: token, ExpiresAt: s.now().UTC().Add(s.tokenTTL)}, nil
}

func sixDigitCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
