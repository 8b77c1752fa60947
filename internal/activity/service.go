package activity

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"peopledesk.org/internal/directory"
	"peopledesk.org/internal/docshare"
)

// Service defines the access log and the anomaly detector. Detection is
// advisory reporting only; it never feeds back into permission resolution.
type Service interface {
	Log(ctx context.Context, spec LogSpec) (Entry, error)
	Suspicious(ctx context.Context, windowDays int) ([]Group, error)
	History(ctx context.Context, employeeID int64, limit int) ([]HistoryEntry, error)
	Overview(ctx context.Context) ([]EmployeeAccessInfo, error)
}

// DirectoryView is the slice of the directory the detector joins against.
type DirectoryView interface {
	Get(ctx context.Context, id int64) (directory.Employee, error)
	List(ctx context.Context) ([]directory.Employee, error)
}

// AccessResolver counts currently accessible documents for the overview.
type AccessResolver interface {
	AccessibleForEmployee(ctx context.Context, employeeID int64) ([]docshare.AccessibleDocument, error)
}

// ParseFileRef splits a file reference into a numeric document id or, for
// non-numeric legacy tokens, nil. The raw token itself is not stored; legacy
// events stay auditable through their file name and url.
func ParseFileRef(ref string) *int64 {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}

// InMemory implements Service over an in-process slice; the aggregation
// mirrors the relational implementation in internal/store/pg.
type InMemory struct {
	mu       sync.RWMutex
	dir      DirectoryView
	resolver AccessResolver
	entries  []Entry
	next     int64
	now      func() time.Time
}

// NewInMemory creates an empty log. resolver may be nil when the overview is
// not needed.
func NewInMemory(dir DirectoryView, resolver AccessResolver) *InMemory {
	return &InMemory{dir: dir, resolver: resolver, now: time.Now}
}

// SetClock overrides the time source. Tests only.
func (s *InMemory) SetClock(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

func (s *InMemory) Log(ctx context.Context, spec LogSpec) (Entry, error) {
	if spec.EmployeeID <= 0 {
		return Entry{}, fmt.Errorf("%w: employee_id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(spec.FileRef) == "" {
		return Entry{}, fmt.Errorf("%w: file_id is required", ErrInvalidInput)
	}
	if !spec.Action.Valid() {
		return Entry{}, fmt.Errorf("%w: action must be view or download", ErrInvalidInput)
	}
	if _, err := s.dir.Get(ctx, spec.EmployeeID); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return Entry{}, ErrEmployeeNotFound
		}
		return Entry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	entry := Entry{
		ID:         s.next,
		EmployeeID: spec.EmployeeID,
		FileID:     ParseFileRef(spec.FileRef),
		FileName:   spec.FileName,
		FileURL:    spec.FileURL,
		Action:     spec.Action,
		Location:   spec.Location,
		AccessedAt: s.now().UTC(),
	}
	s.entries = append(s.entries, entry)
	return entry, nil
}

// Append inserts a pre-timestamped entry. Tests use it to build histories.
func (s *InMemory) Append(entry Entry) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	entry.ID = s.next
	s.entries = append(s.entries, entry)
	return entry
}

type groupKey struct {
	employeeID int64
	bucket     time.Time
}

type groupAgg struct {
	files     map[int64]struct{}
	names     map[string]struct{}
	ordered   []string
	downloads int
	first     time.Time
	last      time.Time
}

func (s *InMemory) Suspicious(ctx context.Context, windowDays int) ([]Group, error) {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	cutoff := s.now().UTC().AddDate(0, 0, -windowDays)

	s.mu.RLock()
	aggs := make(map[groupKey]*groupAgg)
	for _, e := range s.entries {
		if e.AccessedAt.Before(cutoff) {
			continue
		}
		key := groupKey{e.EmployeeID, e.AccessedAt.Truncate(time.Hour)}
		agg, ok := aggs[key]
		if !ok {
			agg = &groupAgg{
				files: make(map[int64]struct{}),
				names: make(map[string]struct{}),
				first: e.AccessedAt,
				last:  e.AccessedAt,
			}
			aggs[key] = agg
		}
		if e.FileID != nil {
			agg.files[*e.FileID] = struct{}{}
		}
		if e.FileName != "" {
			if _, seen := agg.names[e.FileName]; !seen {
				agg.names[e.FileName] = struct{}{}
				agg.ordered = append(agg.ordered, e.FileName)
			}
		}
		if e.Action == ActionDownload {
			agg.downloads++
		}
		if e.AccessedAt.Before(agg.first) {
			agg.first = e.AccessedAt
		}
		if e.AccessedAt.After(agg.last) {
			agg.last = e.AccessedAt
		}
	}
	s.mu.RUnlock()

	var out []Group
	for key, agg := range aggs {
		tag, flagged := Classify(len(agg.files), agg.downloads, agg.first)
		if !flagged {
			continue
		}
		group := Group{
			EmployeeID:        key.employeeID,
			HourBucket:        key.bucket,
			DistinctFileCount: len(agg.files),
			DownloadCount:     agg.downloads,
			FirstAccess:       agg.first,
			LastAccess:        agg.last,
			AccessedFiles:     strings.Join(agg.ordered, ", "),
			SuspiciousType:    tag,
		}
		if emp, err := s.dir.Get(ctx, key.employeeID); err == nil {
			group.FullName = emp.FullName
			group.Email = emp.Email
			group.Department = emp.Department
		}
		out = append(out, group)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastAccess.After(out[j].LastAccess) })
	if len(out) > ResultCap {
		out = out[:ResultCap]
	}
	return out, nil
}

func (s *InMemory) History(ctx context.Context, employeeID int64, limit int) ([]HistoryEntry, error) {
	if employeeID <= 0 {
		return nil, fmt.Errorf("%w: employee_id is required", ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 50
	}
	emp, err := s.dir.Get(ctx, employeeID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, ErrEmployeeNotFound
		}
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []HistoryEntry
	for _, e := range s.entries {
		if e.EmployeeID != employeeID {
			continue
		}
		out = append(out, HistoryEntry{Entry: e, FullName: emp.FullName, Email: emp.Email})
	}
	// Sort the whole match set before cutting so backfilled timestamps cannot
	// push newer rows out of the window.
	sort.SliceStable(out, func(i, j int) bool { return out[i].AccessedAt.After(out[j].AccessedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemory) Overview(ctx context.Context) ([]EmployeeAccessInfo, error) {
	emps, err := s.dir.List(ctx)
	if err != nil {
		return nil, err
	}
	cutoff := s.now().UTC().AddDate(0, 0, -7)

	out := make([]EmployeeAccessInfo, 0, len(emps))
	for _, emp := range emps {
		info := EmployeeAccessInfo{
			EmployeeID: emp.ID,
			FullName:   emp.FullName,
			Email:      emp.Email,
			Department: emp.Department,
			Position:   emp.Position,
			AvatarURL:  emp.AvatarURL,
			Role:       emp.Role,
		}
		s.mu.RLock()
		for _, e := range s.entries {
			if e.EmployeeID != emp.ID || e.AccessedAt.Before(cutoff) {
				continue
			}
			info.AccessCount7Days++
			if e.Action == ActionDownload {
				info.DownloadCount7Days++
			}
		}
		s.mu.RUnlock()
		if s.resolver != nil {
			if docs, err := s.resolver.AccessibleForEmployee(ctx, emp.ID); err == nil {
				info.AccessibleFileCount = len(docs)
			}
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}
