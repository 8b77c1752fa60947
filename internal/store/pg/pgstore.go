package pg

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"peopledesk.org/internal/activity"
	"peopledesk.org/internal/attendance"
	"peopledesk.org/internal/auth"
	"peopledesk.org/internal/directory"
	"peopledesk.org/internal/docshare"
)

// Store owns the PostgreSQL pool and hands out per-domain stores that share
// it. Method sets stay small per domain so each store satisfies exactly one
// service interface.
type Store struct {
	db *sql.DB

	auth       *AuthStore
	directory  *DirectoryStore
	docshare   *DocshareStore
	activity   *ActivityStore
	attendance *AttendanceStore
}

var (
	_ directory.Service        = (*DirectoryStore)(nil)
	_ directory.CredentialSink = (*AuthStore)(nil)
	_ docshare.Service         = (*DocshareStore)(nil)
	_ activity.Service         = (*ActivityStore)(nil)
	_ attendance.Service       = (*AttendanceStore)(nil)
	_ auth.Store               = (*AuthStore)(nil)
)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return NewWithDB(db), nil
}

// NewWithDB wraps an existing handle. Tests pass sqlmock connections here.
func NewWithDB(db *sql.DB) *Store {
	s := &Store{db: db}
	s.auth = &AuthStore{db: db}
	s.directory = &DirectoryStore{db: db, creds: s.auth}
	s.docshare = &DocshareStore{db: db}
	s.activity = &ActivityStore{db: db, now: time.Now}
	s.attendance = &AttendanceStore{db: db, now: time.Now}
	return s
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Auth() *AuthStore             { return s.auth }
func (s *Store) Directory() *DirectoryStore   { return s.directory }
func (s *Store) Docshare() *DocshareStore     { return s.docshare }
func (s *Store) Activity() *ActivityStore     { return s.activity }
func (s *Store) Attendance() *AttendanceStore { return s.attendance }

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// dateString renders a nullable date column as YYYY-MM-DD.
func dateString(t sql.NullTime) string {
	if !t.Valid {
		return ""
	}
	return t.Time.Format("2006-01-02")
}

// dateArg converts a YYYY-MM-DD string into a nullable query argument.
func dateArg(s string) any {
	if s == "" {
		return nil
	}
	return s
}
