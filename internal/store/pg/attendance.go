package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"peopledesk.org/internal/attendance"
)

// AttendanceStore implements daily check-ins over PostgreSQL. One row per
// employee per day, enforced by a unique constraint.
type AttendanceStore struct {
	db  *sql.DB
	now func() time.Time
}

func (s *AttendanceStore) CheckInOrOut(ctx context.Context, employeeID int64) (attendance.CheckResult, error) {
	if employeeID <= 0 {
		return attendance.CheckResult{}, attendance.ErrInvalidInput
	}
	now := s.now().UTC()
	day := now.Format("2006-01-02")

	var id int64
	var checkOut sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		select id, check_out from attendances where employee_id=$1 and date=$2
	`, employeeID, day).Scan(&id, &checkOut)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err := s.db.ExecContext(ctx, `
			insert into attendances(employee_id, date, check_in) values ($1,$2,$3)
		`, employeeID, day, now)
		if isForeignKeyViolation(err) {
			return attendance.CheckResult{}, attendance.ErrEmployeeNotFound
		}
		if isUniqueViolation(err) {
			// Concurrent first check of the day; treat as already open.
			return attendance.CheckResult{Type: attendance.Done, Message: "Already checked in today"}, nil
		}
		if err != nil {
			return attendance.CheckResult{}, err
		}
		return attendance.CheckResult{
			Type:    attendance.CheckedIn,
			Message: "Checked in at " + now.Format("15:04"),
		}, nil
	case err != nil:
		return attendance.CheckResult{}, err
	case !checkOut.Valid:
		if _, err := s.db.ExecContext(ctx,
			`update attendances set check_out=$2 where id=$1`, id, now); err != nil {
			return attendance.CheckResult{}, err
		}
		return attendance.CheckResult{
			Type:    attendance.CheckedOut,
			Message: "Checked out at " + now.Format("15:04"),
		}, nil
	default:
		return attendance.CheckResult{Type: attendance.Done, Message: "Already checked in and out today"}, nil
	}
}

func (s *AttendanceStore) Today(ctx context.Context, employeeID int64) (attendance.Record, error) {
	if employeeID <= 0 {
		return attendance.Record{}, attendance.ErrInvalidInput
	}
	var rec attendance.Record
	var checkOut sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		select id, employee_id, date, check_in, check_out
		from attendances
		where employee_id = $1 and date = current_date
	`, employeeID).Scan(&rec.ID, &rec.EmployeeID, &rec.Date, &rec.CheckIn, &checkOut)
	if errors.Is(err, sql.ErrNoRows) {
		return attendance.Record{}, attendance.ErrNoRecord
	}
	if err != nil {
		return attendance.Record{}, err
	}
	if checkOut.Valid {
		out := checkOut.Time
		rec.CheckOut = &out
	}
	return rec, nil
}

func (s *AttendanceStore) Week(ctx context.Context, email string) ([]attendance.DayView, error) {
	var employeeID int64
	err := s.db.QueryRowContext(ctx,
		`select id from employees where lower(email)=lower($1)`, email).Scan(&employeeID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, attendance.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		select id, employee_id, date, check_in, check_out
		from attendances
		where employee_id = $1
		order by date desc
		limit 7
	`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []attendance.Record
	for rows.Next() {
		var rec attendance.Record
		var checkOut sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.EmployeeID, &rec.Date, &rec.CheckIn, &checkOut); err != nil {
			return nil, err
		}
		if checkOut.Valid {
			out := checkOut.Time
			rec.CheckOut = &out
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return attendance.RecentDays(recs, 7), nil
}
