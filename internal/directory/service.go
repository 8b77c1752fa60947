package directory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"peopledesk.org/internal/auth"
)

// Service defines employee directory operations.
type Service interface {
	Create(ctx context.Context, emp Employee) (Employee, error)
	Update(ctx context.Context, id int64, emp Employee) (Employee, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (Employee, error)
	GetByEmail(ctx context.Context, email string) (Employee, error)
	List(ctx context.Context) ([]Employee, error)
}

// CredentialSink receives login-credential updates so the users table stays
// loosely in sync with the directory. Writes to the sink are best effort:
// a sink failure after a committed employee write is surfaced via
// ErrCredentialProvision, never rolled back.
type CredentialSink interface {
	SaveCredential(ctx context.Context, email, passwordHash, role string) error
	RenameCredential(ctx context.Context, oldEmail, newEmail, role string) error
	DeleteCredential(ctx context.Context, email string) error
}

// InMemory implements Service for tests and local runs.
type InMemory struct {
	mu   sync.RWMutex
	emps map[int64]*Employee
	next int64
	sink CredentialSink
}

// NewInMemory creates an empty directory. sink may be nil.
func NewInMemory(sink CredentialSink) *InMemory {
	return &InMemory{
		emps: make(map[int64]*Employee),
		sink: sink,
	}
}

func (s *InMemory) Create(ctx context.Context, emp Employee) (Employee, error) {
	if err := Normalize(&emp); err != nil {
		return Employee{}, err
	}

	s.mu.Lock()
	for _, existing := range s.emps {
		if existing.Email == emp.Email {
			s.mu.Unlock()
			return Employee{}, ErrEmailTaken
		}
	}
	s.next++
	emp.ID = s.next
	emp.CreatedAt = time.Now().UTC()
	stored := emp
	s.emps[emp.ID] = &stored
	s.mu.Unlock()

	if s.sink != nil {
		hash, err := auth.HashPassword(DefaultOnboardPassword)
		if err == nil {
			err = s.sink.SaveCredential(ctx, emp.Email, hash, emp.Role)
		}
		if err != nil {
			return emp, fmt.Errorf("%w: %v", ErrCredentialProvision, err)
		}
	}
	return emp, nil
}

func (s *InMemory) Update(ctx context.Context, id int64, emp Employee) (Employee, error) {
	if err := Normalize(&emp); err != nil {
		return Employee{}, err
	}

	s.mu.Lock()
	existing, ok := s.emps[id]
	if !ok {
		s.mu.Unlock()
		return Employee{}, ErrNotFound
	}
	oldEmail := existing.Email
	emp.ID = id
	emp.CreatedAt = existing.CreatedAt
	stored := emp
	s.emps[id] = &stored
	s.mu.Unlock()

	if s.sink != nil {
		if err := s.sink.RenameCredential(ctx, oldEmail, emp.Email, emp.Role); err != nil {
			return emp, fmt.Errorf("%w: %v", ErrCredentialProvision, err)
		}
	}
	return emp, nil
}

func (s *InMemory) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	existing, ok := s.emps[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	email := existing.Email
	delete(s.emps, id)
	s.mu.Unlock()

	if s.sink != nil {
		_ = s.sink.DeleteCredential(ctx, email)
	}
	return nil
}

func (s *InMemory) Get(ctx context.Context, id int64) (Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	emp, ok := s.emps[id]
	if !ok {
		return Employee{}, ErrNotFound
	}
	return *emp, nil
}

func (s *InMemory) GetByEmail(ctx context.Context, email string) (Employee, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, emp := range s.emps {
		if emp.Email == email {
			return *emp, nil
		}
	}
	return Employee{}, ErrNotFound
}

func (s *InMemory) List(ctx context.Context) ([]Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Employee, 0, len(s.emps))
	for _, emp := range s.emps {
		out = append(out, *emp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

// Normalize trims and lowercases identifying fields and applies defaults.
// Store implementations call it before writing.
func Normalize(emp *Employee) error {
	emp.FullName = strings.TrimSpace(emp.FullName)
	emp.Email = strings.ToLower(strings.TrimSpace(emp.Email))
	emp.Role = strings.ToLower(strings.TrimSpace(emp.Role))
	if emp.FullName == "" {
		return fmt.Errorf("%w: full_name is required", ErrInvalidInput)
	}
	if emp.Email == "" || !strings.Contains(emp.Email, "@") {
		return fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if emp.Role == "" {
		emp.Role = "staff"
	}
	return nil
}
