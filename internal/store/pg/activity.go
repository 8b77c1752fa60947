package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"peopledesk.org/internal/activity"
)

// ActivityStore implements the append-only access log and the anomaly
// detector over PostgreSQL. The aggregation mirrors activity.InMemory; the
// thresholds come from the activity package so both backends flag the same
// groups.
type ActivityStore struct {
	db  *sql.DB
	now func() time.Time
}

func (s *ActivityStore) Log(ctx context.Context, spec activity.LogSpec) (activity.Entry, error) {
	if spec.EmployeeID <= 0 {
		return activity.Entry{}, fmt.Errorf("%w: employee_id is required", activity.ErrInvalidInput)
	}
	if strings.TrimSpace(spec.FileRef) == "" {
		return activity.Entry{}, fmt.Errorf("%w: file_id is required", activity.ErrInvalidInput)
	}
	if !spec.Action.Valid() {
		return activity.Entry{}, fmt.Errorf("%w: action must be view or download", activity.ErrInvalidInput)
	}

	entry := activity.Entry{
		EmployeeID: spec.EmployeeID,
		FileID:     activity.ParseFileRef(spec.FileRef),
		FileName:   spec.FileName,
		FileURL:    spec.FileURL,
		Action:     spec.Action,
		Location:   spec.Location,
		AccessedAt: s.now().UTC(),
	}
	var fileID any
	if entry.FileID != nil {
		fileID = *entry.FileID
	}
	err := s.db.QueryRowContext(ctx, `
		insert into document_access_logs(employee_id, file_id, file_name, file_url, action, location, accessed_at)
		values ($1,$2,$3,$4,$5,$6,$7)
		returning id
	`, entry.EmployeeID, fileID, entry.FileName, entry.FileURL, entry.Action,
		entry.Location, entry.AccessedAt).Scan(&entry.ID)
	if isForeignKeyViolation(err) {
		return activity.Entry{}, activity.ErrEmployeeNotFound
	}
	if err != nil {
		return activity.Entry{}, err
	}
	return entry, nil
}

func (s *ActivityStore) Suspicious(ctx context.Context, windowDays int) ([]activity.Group, error) {
	if windowDays <= 0 {
		windowDays = activity.DefaultWindowDays
	}
	cutoff := s.now().UTC().AddDate(0, 0, -windowDays)

	rows, err := s.db.QueryContext(ctx, `
		select l.employee_id,
			coalesce(e.full_name, ''), coalesce(e.email, ''), coalesce(e.department, ''),
			date_trunc('hour', l.accessed_at) as hour_bucket,
			count(distinct l.file_id) filter (where l.file_id is not null) as file_count,
			count(*) filter (where l.action = 'download') as download_count,
			min(l.accessed_at) as first_access,
			max(l.accessed_at) as last_access,
			string_agg(distinct l.file_name, ', ') filter (where l.file_name <> '') as accessed_files
		from document_access_logs l
		left join employees e on e.id = l.employee_id
		where l.accessed_at >= $1
		group by l.employee_id, e.full_name, e.email, e.department, date_trunc('hour', l.accessed_at)
		order by last_access desc
	`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []activity.Group
	for rows.Next() {
		var g activity.Group
		var files sql.NullString
		if err := rows.Scan(&g.EmployeeID, &g.FullName, &g.Email, &g.Department,
			&g.HourBucket, &g.DistinctFileCount, &g.DownloadCount,
			&g.FirstAccess, &g.LastAccess, &files); err != nil {
			return nil, err
		}
		tag, flagged := activity.Classify(g.DistinctFileCount, g.DownloadCount, g.FirstAccess)
		if !flagged {
			continue
		}
		g.AccessedFiles = files.String
		g.SuspiciousType = tag
		out = append(out, g)
		if len(out) == activity.ResultCap {
			break
		}
	}
	return out, rows.Err()
}

func (s *ActivityStore) History(ctx context.Context, employeeID int64, limit int) ([]activity.HistoryEntry, error) {
	if employeeID <= 0 {
		return nil, fmt.Errorf("%w: employee_id is required", activity.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 50
	}
	var fullName, email string
	err := s.db.QueryRowContext(ctx,
		`select full_name, email from employees where id=$1`, employeeID).Scan(&fullName, &email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, activity.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		select id, employee_id, file_id, file_name, file_url, action, location, accessed_at
		from document_access_logs
		where employee_id = $1
		order by accessed_at desc, id desc
		limit $2
	`, employeeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []activity.HistoryEntry
	for rows.Next() {
		var h activity.HistoryEntry
		var fileID sql.NullInt64
		if err := rows.Scan(&h.ID, &h.EmployeeID, &fileID, &h.FileName, &h.FileURL,
			&h.Action, &h.Location, &h.AccessedAt); err != nil {
			return nil, err
		}
		if fileID.Valid {
			id := fileID.Int64
			h.FileID = &id
		}
		h.FullName = fullName
		h.Email = email
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *ActivityStore) Overview(ctx context.Context) ([]activity.EmployeeAccessInfo, error) {
	cutoff := s.now().UTC().AddDate(0, 0, -7)
	rows, err := s.db.QueryContext(ctx, `
		select e.id, e.full_name, e.email, e.department, e.position, e.avatar_url, e.role,
			count(l.id) filter (where l.accessed_at >= $1) as access_count,
			count(l.id) filter (where l.accessed_at >= $1 and l.action = 'download') as download_count,
			(select count(*) from shared_files f
				left join file_permissions p on p.file_id = f.id and p.employee_id = e.id
				where f.target_audience = 'all'
					or (f.target_audience = 'staff' and e.role = 'staff')
					or (f.target_audience = 'single' and p.id is not null)) as accessible_count
		from employees e
		left join document_access_logs l on l.employee_id = e.id
		group by e.id
		order by e.full_name asc, e.id asc
	`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []activity.EmployeeAccessInfo
	for rows.Next() {
		var info activity.EmployeeAccessInfo
		if err := rows.Scan(&info.EmployeeID, &info.FullName, &info.Email,
			&info.Department, &info.Position, &info.AvatarURL, &info.Role,
			&info.AccessCount7Days, &info.DownloadCount7Days, &info.AccessibleFileCount); err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}
