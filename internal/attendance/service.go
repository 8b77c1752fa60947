package attendance

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"peopledesk.org/internal/directory"
)

// Service records daily check-ins and answers recent-history queries. One
// row per employee per calendar day; the first check of a day opens it, the
// second closes it, any further check is a no-op.
type Service interface {
	CheckInOrOut(ctx context.Context, employeeID int64) (CheckResult, error)
	Today(ctx context.Context, employeeID int64) (Record, error)
	Week(ctx context.Context, email string) ([]DayView, error)
}

// FaceMatcher identifies an employee from a camera frame. Implementations
// call out to an external recognition service; the in-process code only
// consumes the label.
type FaceMatcher interface {
	MatchFace(ctx context.Context, frame []byte) (Match, error)
}

// EmployeeLookup is the slice of the directory attendance needs.
type EmployeeLookup interface {
	Get(ctx context.Context, id int64) (directory.Employee, error)
	GetByEmail(ctx context.Context, email string) (directory.Employee, error)
}

type dayKey struct {
	employeeID int64
	date       string
}

// InMemory implements Service over a map keyed by employee and day.
type InMemory struct {
	mu      sync.Mutex
	dir     EmployeeLookup
	records map[dayKey]*Record
	next    int64
	now     func() time.Time
}

// NewInMemory creates an empty attendance book backed by dir.
func NewInMemory(dir EmployeeLookup) *InMemory {
	return &InMemory{dir: dir, records: make(map[dayKey]*Record), now: time.Now}
}

// SetClock overrides the time source. Tests only.
func (s *InMemory) SetClock(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

func (s *InMemory) CheckInOrOut(ctx context.Context, employeeID int64) (CheckResult, error) {
	if employeeID <= 0 {
		return CheckResult{}, ErrInvalidInput
	}
	if _, err := s.dir.Get(ctx, employeeID); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return CheckResult{}, ErrEmployeeNotFound
		}
		return CheckResult{}, err
	}

	now := s.now().UTC()
	key := dayKey{employeeID, now.Format("2006-01-02")}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		s.next++
		day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		s.records[key] = &Record{ID: s.next, EmployeeID: employeeID, Date: day, CheckIn: now}
		return CheckResult{Type: CheckedIn, Message: "Checked in at " + now.Format("15:04")}, nil
	}
	if rec.CheckOut == nil {
		out := now
		rec.CheckOut = &out
		return CheckResult{Type: CheckedOut, Message: "Checked out at " + now.Format("15:04")}, nil
	}
	return CheckResult{Type: Done, Message: "Already checked in and out today"}, nil
}

func (s *InMemory) Today(ctx context.Context, employeeID int64) (Record, error) {
	if employeeID <= 0 {
		return Record{}, ErrInvalidInput
	}
	key := dayKey{employeeID, s.now().UTC().Format("2006-01-02")}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return Record{}, ErrNoRecord
	}
	return *rec, nil
}

func (s *InMemory) Week(ctx context.Context, email string) ([]DayView, error) {
	emp, err := s.dir.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, ErrEmployeeNotFound
		}
		return nil, err
	}

	s.mu.Lock()
	var recs []Record
	for _, rec := range s.records {
		if rec.EmployeeID == emp.ID {
			recs = append(recs, *rec)
		}
	}
	s.mu.Unlock()

	return RecentDays(recs, 7), nil
}

// RecentDays renders the newest n attendance records, most recent first.
func RecentDays(recs []Record, n int) []DayView {
	sort.Slice(recs, func(i, j int) bool { return recs[i].Date.After(recs[j].Date) })
	if len(recs) > n {
		recs = recs[:n]
	}
	out := make([]DayView, 0, len(recs))
	for _, rec := range recs {
		view := DayView{
			Date:    rec.Date.Format("2006-01-02"),
			Weekday: rec.Date.Weekday().String(),
			CheckIn: rec.CheckIn.Format("15:04"),
		}
		if rec.CheckOut != nil {
			view.CheckOut = rec.CheckOut.Format("15:04")
		}
		out = append(out, view)
	}
	return out
}
