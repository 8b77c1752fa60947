package pg

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"peopledesk.org/internal/auth"
)

// AuthStore persists login credentials and one-time codes. It doubles as the
// credential sink the directory store writes through.
type AuthStore struct {
	db *sql.DB
}

func (s *AuthStore) FindCredential(ctx context.Context, email string) (auth.Credential, error) {
	var cred auth.Credential
	err := s.db.QueryRowContext(ctx, `
		select email, password_hash, role from users where lower(email)=lower($1)
	`, email).Scan(&cred.Email, &cred.PasswordHash, &cred.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Credential{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.Credential{}, err
	}
	return cred, nil
}

func (s *AuthStore) SaveCredential(ctx context.Context, email, passwordHash, role string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return auth.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
		insert into users(email, password_hash, role)
		values ($1,$2,$3)
		on conflict (email) do update
		set password_hash = excluded.password_hash, role = excluded.role
	`, email, passwordHash, role)
	return err
}

func (s *AuthStore) RenameCredential(ctx context.Context, oldEmail, newEmail, role string) error {
	newEmail = strings.ToLower(strings.TrimSpace(newEmail))
	if newEmail == "" {
		return auth.ErrInvalidInput
	}
	res, err := s.db.ExecContext(ctx, `
		update users set email=$2, role=$3 where lower(email)=lower($1)
	`, oldEmail, newEmail, role)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (s *AuthStore) DeleteCredential(ctx context.Context, email string) error {
	_, err := s.db.ExecContext(ctx, `delete from users where lower(email)=lower($1)`, email)
	return err
}

func (s *AuthStore) CreateOTP(ctx context.Context, otp auth.OTPCode) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		insert into otp_codes(email, code, expires_at)
		values ($1,$2,$3)
		returning id
	`, strings.ToLower(strings.TrimSpace(otp.Email)), otp.Code, otp.ExpiresAt).Scan(&id)
	return id, err
}

func (s *AuthStore) LatestOTP(ctx context.Context, email string) (auth.OTPCode, error) {
	var otp auth.OTPCode
	err := s.db.QueryRowContext(ctx, `
		select id, email, code, expires_at from otp_codes
		where lower(email)=lower($1)
		order by created_at desc, id desc
		limit 1
	`, email).Scan(&otp.ID, &otp.Email, &otp.Code, &otp.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.OTPCode{}, auth.ErrOTPNotFound
	}
	if err != nil {
		return auth.OTPCode{}, err
	}
	return otp, nil
}

func (s *AuthStore) DeleteOTP(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `delete from otp_codes where id=$1`, id)
	return err
}
