package auth

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Credential is one row of the users login table, kept loosely in sync with
// the employee directory by email.
type Credential struct {
	Email        string
	PasswordHash string
	Role         string
}

// OTPCode is a short-lived second-factor code. Expiry is enforced by
// comparing ExpiresAt to the wall clock at verification time; no sweeper runs.
type OTPCode struct {
	ID        int64
	Email     string
	Code      string
	ExpiresAt time.Time
}

// Store describes persistence operations required by the auth subsystem.
type Store interface {
	FindCredential(ctx context.Context, email string) (Credential, error)
	CreateOTP(ctx context.Context, otp OTPCode) (int64, error)
	LatestOTP(ctx context.Context, email string) (OTPCode, error)
	DeleteOTP(ctx context.Context, id int64) error
}

// InMemoryStore implements Store for tests and local runs. It also satisfies
// the directory package's credential sink so employee onboarding can provision
// logins against it.
type InMemoryStore struct {
	mu    sync.Mutex
	creds map[string]Credential
	otps  []OTPCode
	next  int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{creds: make(map[string]Credential)}
}

func (s *InMemoryStore) FindCredential(ctx context.Context, email string) (Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.creds[normalizeEmail(email)]
	if !ok {
		return Credential{}, ErrNotFound
	}
	return cred, nil
}

func (s *InMemoryStore) SaveCredential(ctx context.Context, email, passwordHash, role string) error {
	email = normalizeEmail(email)
	if email == "" {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[email] = Credential{Email: email, PasswordHash: passwordHash, Role: role}
	return nil
}

func (s *InMemoryStore) RenameCredential(ctx context.Context, oldEmail, newEmail, role string) error {
	oldEmail = normalizeEmail(oldEmail)
	newEmail = normalizeEmail(newEmail)
	if newEmail == "" {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.creds[oldEmail]
	if !ok {
		return ErrNotFound
	}
	delete(s.creds, oldEmail)
	cred.Email = newEmail
	cred.Role = role
	s.creds[newEmail] = cred
	return nil
}

func (s *InMemoryStore) DeleteCredential(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.creds, normalizeEmail(email))
	return nil
}

func (s *InMemoryStore) CreateOTP(ctx context.Context, otp OTPCode) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	otp.ID = s.next
	otp.Email = normalizeEmail(otp.Email)
	s.otps = append(s.otps, otp)
	return otp.ID, nil
}

func (s *InMemoryStore) LatestOTP(ctx context.Context, email string) (OTPCode, error) {
	email = normalizeEmail(email)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.otps) - 1; i >= 0; i-- {
		if s.otps[i].Email == email {
			return s.otps[i], nil
		}
	}
	return OTPCode{}, ErrOTPNotFound
}

func (s *InMemoryStore) DeleteOTP(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, otp := range s.otps {
		if otp.ID == id {
			s.otps = append(s.otps[:i], s.otps[i+1:]...)
			return nil
		}
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
