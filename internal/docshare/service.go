package docshare

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"peopledesk.org/internal/directory"
)

// Service defines document sharing and permission resolution operations.
type Service interface {
	// AccessibleForEmployee resolves the set of documents the employee may
	// access, newest first. Accessibility is a pure function of the
	// document's audience, the employee's role and grant existence.
	AccessibleForEmployee(ctx context.Context, employeeID int64) ([]AccessibleDocument, error)
	Create(ctx context.Context, spec CreateSpec) (CreateResult, error)
	ListAll(ctx context.Context) ([]DocumentSummary, error)
	Delete(ctx context.Context, id int64) error
	Grant(ctx context.Context, g Grant) error
	Revoke(ctx context.Context, fileID, employeeID int64) error
	Permissions(ctx context.Context, fileID int64) ([]GrantDetail, error)
}

// EmployeeDirectory is the slice of the directory the resolver needs.
type EmployeeDirectory interface {
	Get(ctx context.Context, id int64) (directory.Employee, error)
	GetByEmail(ctx context.Context, email string) (directory.Employee, error)
}

type grantKey struct {
	fileID     int64
	employeeID int64
}

// InMemory implements Service against an in-process map. The relational
// implementation lives in internal/store/pg; this one backs tests.
type InMemory struct {
	mu     sync.RWMutex
	dir    EmployeeDirectory
	docs   map[int64]*Document
	grants map[grantKey]*Grant
	next   int64
}

func NewInMemory(dir EmployeeDirectory) *InMemory {
	return &InMemory{
		dir:    dir,
		docs:   make(map[int64]*Document),
		grants: make(map[grantKey]*Grant),
	}
}

func (s *InMemory) AccessibleForEmployee(ctx context.Context, employeeID int64) ([]AccessibleDocument, error) {
	emp, err := s.dir.Get(ctx, employeeID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, ErrEmployeeNotFound
		}
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []AccessibleDocument
	for _, doc := range s.docs {
		switch doc.Audience {
		case AudienceAll:
			out = append(out, AccessibleDocument{Document: *doc})
		case AudienceStaff:
			if emp.Role == "staff" {
				out = append(out, AccessibleDocument{Document: *doc})
			}
		case AudienceSingle:
			if g, ok := s.grants[grantKey{doc.ID, employeeID}]; ok {
				out = append(out, AccessibleDocument{Document: *doc, PermissionType: g.PermissionType})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *InMemory) Create(ctx context.Context, spec CreateSpec) (CreateResult, error) {
	if err := NormalizeSpec(&spec); err != nil {
		return CreateResult{}, err
	}
	if _, err := s.dir.Get(ctx, spec.CreatedBy); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return CreateResult{}, ErrEmployeeNotFound
		}
		return CreateResult{}, err
	}

	s.mu.Lock()
	s.next++
	doc := &Document{
		ID:        s.next,
		Name:      spec.Name,
		URL:       spec.URL,
		FileType:  spec.FileType,
		FileSize:  spec.FileSize,
		Audience:  spec.Audience,
		CreatedBy: spec.CreatedBy,
		CreatedAt: time.Now().UTC(),
	}
	s.docs[doc.ID] = doc
	s.mu.Unlock()

	res := CreateResult{FileID: doc.ID}
	if spec.Audience != AudienceSingle || (spec.AssigneeEmail == "" && spec.AssigneeID == 0) {
		return res, nil
	}

	assignee, err := s.resolveAssignee(ctx, spec)
	if err != nil {
		// Lenient policy: the document stands even when the assignee cannot
		// be resolved. The caller is told no grant was written.
		res.Note = "assignee not found; document created without a grant"
		return res, nil
	}

	s.mu.Lock()
	key := grantKey{doc.ID, assignee.ID}
	s.grants[key] = &Grant{
		FileID:         doc.ID,
		EmployeeID:     assignee.ID,
		PermissionType: PermissionBoth,
		GrantedBy:      spec.CreatedBy,
		GrantedAt:      time.Now().UTC(),
	}
	s.mu.Unlock()
	res.Assigned = true
	return res, nil
}

func (s *InMemory) resolveAssignee(ctx context.Context, spec CreateSpec) (directory.Employee, error) {
	if spec.AssigneeEmail != "" {
		if emp, err := s.dir.GetByEmail(ctx, spec.AssigneeEmail); err == nil {
			return emp, nil
		}
	}
	if spec.AssigneeID > 0 {
		if emp, err := s.dir.Get(ctx, spec.AssigneeID); err == nil {
			return emp, nil
		}
	}
	return directory.Employee{}, ErrEmployeeNotFound
}

func (s *InMemory) ListAll(ctx context.Context) ([]DocumentSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]DocumentSummary, 0, len(s.docs))
	for _, doc := range s.docs {
		summary := DocumentSummary{Document: *doc}
		for key := range s.grants {
			if key.fileID == doc.ID {
				summary.GrantCount++
			}
		}
		if creator, err := s.dir.Get(ctx, doc.CreatedBy); err == nil {
			summary.CreatedByName = creator.FullName
			summary.CreatedByEmail = creator.Email
		}
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *InMemory) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return ErrNotFound
	}
	delete(s.docs, id)
	for key := range s.grants {
		if key.fileID == id {
			delete(s.grants, key)
		}
	}
	return nil
}

func (s *InMemory) Grant(ctx context.Context, g Grant) error {
	if g.FileID <= 0 || g.EmployeeID <= 0 {
		return ErrInvalidInput
	}
	if g.PermissionType == "" {
		g.PermissionType = PermissionBoth
	}
	if !g.PermissionType.Valid() {
		return fmt.Errorf("%w: unknown permission type %q", ErrInvalidInput, g.PermissionType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[g.FileID]; !ok {
		return ErrNotFound
	}
	// Last write wins: re-granting refreshes type and timestamp in place.
	g.GrantedAt = time.Now().UTC()
	stored := g
	s.grants[grantKey{g.FileID, g.EmployeeID}] = &stored
	return nil
}

func (s *InMemory) Revoke(ctx context.Context, fileID, employeeID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.grants, grantKey{fileID, employeeID})
	return nil
}

func (s *InMemory) Permissions(ctx context.Context, fileID int64) ([]GrantDetail, error) {
	s.mu.RLock()
	grants := make([]Grant, 0)
	for key, g := range s.grants {
		if key.fileID == fileID {
			grants = append(grants, *g)
		}
	}
	s.mu.RUnlock()

	out := make([]GrantDetail, 0, len(grants))
	for _, g := range grants {
		detail := GrantDetail{Grant: g}
		if emp, err := s.dir.Get(ctx, g.EmployeeID); err == nil {
			detail.FullName = emp.FullName
			detail.Email = emp.Email
			detail.Department = emp.Department
		}
		out = append(out, detail)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

// NormalizeSpec trims and defaults a create request. Store implementations
// call it before writing.
func NormalizeSpec(spec *CreateSpec) error {
	spec.Name = strings.TrimSpace(spec.Name)
	spec.URL = strings.TrimSpace(spec.URL)
	spec.AssigneeEmail = strings.ToLower(strings.TrimSpace(spec.AssigneeEmail))
	if spec.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if spec.URL == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidInput)
	}
	if spec.CreatedBy <= 0 {
		return fmt.Errorf("%w: created_by must be a positive employee id", ErrInvalidInput)
	}
	if spec.Audience == "" {
		spec.Audience = AudienceStaff
	}
	if !spec.Audience.Valid() {
		return fmt.Errorf("%w: unknown audience %q", ErrInvalidInput, spec.Audience)
	}
	return nil
}
