package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"peopledesk.org/internal/docshare"
)

// DocshareStore implements document sharing and permission resolution over
// PostgreSQL.
type DocshareStore struct {
	db *sql.DB
}

// AccessibleForEmployee resolves visibility in a single query: audience all is
// universal, audience staff requires the staff role, audience single requires
// a grant row for this employee.
func (s *DocshareStore) AccessibleForEmployee(ctx context.Context, employeeID int64) ([]docshare.AccessibleDocument, error) {
	var role string
	err := s.db.QueryRowContext(ctx, `select role from employees where id=$1`, employeeID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, docshare.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		select f.id, f.file_name, f.file_url, f.file_type, f.file_size,
			f.target_audience, f.created_by, f.created_at,
			coalesce(p.permission_type, '')
		from shared_files f
		left join file_permissions p on p.file_id = f.id and p.employee_id = $1
		where f.target_audience = 'all'
			or (f.target_audience = 'staff' and $2 = 'staff')
			or (f.target_audience = 'single' and p.id is not null)
		order by f.created_at desc, f.id desc
	`, employeeID, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []docshare.AccessibleDocument
	for rows.Next() {
		var doc docshare.AccessibleDocument
		var perm string
		if err := rows.Scan(&doc.ID, &doc.Name, &doc.URL, &doc.FileType, &doc.FileSize,
			&doc.Audience, &doc.CreatedBy, &doc.CreatedAt, &perm); err != nil {
			return nil, err
		}
		if doc.Audience == docshare.AudienceSingle {
			doc.PermissionType = docshare.PermissionType(perm)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (s *DocshareStore) Create(ctx context.Context, spec docshare.CreateSpec) (docshare.CreateResult, error) {
	if err := docshare.NormalizeSpec(&spec); err != nil {
		return docshare.CreateResult{}, err
	}

	var fileID int64
	err := s.db.QueryRowContext(ctx, `
		insert into shared_files(file_name, file_url, file_type, file_size, target_audience, created_by)
		values ($1,$2,$3,$4,$5,$6)
		returning id
	`, spec.Name, spec.URL, spec.FileType, spec.FileSize, spec.Audience, spec.CreatedBy).Scan(&fileID)
	if isForeignKeyViolation(err) {
		return docshare.CreateResult{}, docshare.ErrEmployeeNotFound
	}
	if err != nil {
		return docshare.CreateResult{}, err
	}

	res := docshare.CreateResult{FileID: fileID}
	if spec.Audience != docshare.AudienceSingle || (spec.AssigneeEmail == "" && spec.AssigneeID == 0) {
		return res, nil
	}

	assigneeID, err := s.resolveAssignee(ctx, spec)
	if err != nil {
		// Lenient policy: the document stands even when the assignee cannot
		// be resolved. The caller is told no grant was written.
		res.Note = "assignee not found; document created without a grant"
		return res, nil
	}
	if err := s.upsertGrant(ctx, docshare.Grant{
		FileID:         fileID,
		EmployeeID:     assigneeID,
		PermissionType: docshare.PermissionBoth,
		GrantedBy:      spec.CreatedBy,
	}); err != nil {
		res.Note = "document created but the grant could not be written"
		return res, nil
	}
	res.Assigned = true
	return res, nil
}

func (s *DocshareStore) resolveAssignee(ctx context.Context, spec docshare.CreateSpec) (int64, error) {
	var id int64
	if spec.AssigneeEmail != "" {
		err := s.db.QueryRowContext(ctx,
			`select id from employees where lower(email)=lower($1)`, spec.AssigneeEmail).Scan(&id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, err
		}
	}
	if spec.AssigneeID > 0 {
		err := s.db.QueryRowContext(ctx,
			`select id from employees where id=$1`, spec.AssigneeID).Scan(&id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, err
		}
	}
	return 0, docshare.ErrEmployeeNotFound
}

func (s *DocshareStore) ListAll(ctx context.Context) ([]docshare.DocumentSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		select f.id, f.file_name, f.file_url, f.file_type, f.file_size,
			f.target_audience, f.created_by, f.created_at,
			coalesce(e.full_name, ''), coalesce(e.email, ''),
			(select count(*) from file_permissions p where p.file_id = f.id)
		from shared_files f
		left join employees e on e.id = f.created_by
		order by f.created_at desc, f.id desc
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []docshare.DocumentSummary
	for rows.Next() {
		var sum docshare.DocumentSummary
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.URL, &sum.FileType, &sum.FileSize,
			&sum.Audience, &sum.CreatedBy, &sum.CreatedAt,
			&sum.CreatedByName, &sum.CreatedByEmail, &sum.GrantCount); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *DocshareStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from shared_files where id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return docshare.ErrNotFound
	}
	return nil
}

func (s *DocshareStore) Grant(ctx context.Context, g docshare.Grant) error {
	if g.FileID <= 0 || g.EmployeeID <= 0 {
		return docshare.ErrInvalidInput
	}
	if g.PermissionType == "" {
		g.PermissionType = docshare.PermissionBoth
	}
	if !g.PermissionType.Valid() {
		return fmt.Errorf("%w: unknown permission type %q", docshare.ErrInvalidInput, g.PermissionType)
	}
	err := s.upsertGrant(ctx, g)
	if isForeignKeyViolation(err) {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && strings.Contains(pgErr.ConstraintName, "employee") {
			return docshare.ErrEmployeeNotFound
		}
		return docshare.ErrNotFound
	}
	return err
}

// upsertGrant keeps at most one row per (file, employee); last write wins.
func (s *DocshareStore) upsertGrant(ctx context.Context, g docshare.Grant) error {
	_, err := s.db.ExecContext(ctx, `
		insert into file_permissions(file_id, employee_id, permission_type, granted_by, granted_at)
		values ($1,$2,$3, nullif($4, 0), now())
		on conflict (file_id, employee_id) do update
		set permission_type = excluded.permission_type,
			granted_by = excluded.granted_by,
			granted_at = excluded.granted_at
	`, g.FileID, g.EmployeeID, g.PermissionType, g.GrantedBy)
	return err
}

func (s *DocshareStore) Revoke(ctx context.Context, fileID, employeeID int64) error {
	_, err := s.db.ExecContext(ctx,
		`delete from file_permissions where file_id=$1 and employee_id=$2`, fileID, employeeID)
	return err
}

func (s *DocshareStore) Permissions(ctx context.Context, fileID int64) ([]docshare.GrantDetail, error) {
	rows, err := s.db.QueryContext(ctx, `
		select p.file_id, p.employee_id, p.permission_type, coalesce(p.granted_by, 0), p.granted_at,
			coalesce(e.full_name, ''), coalesce(e.email, ''), coalesce(e.department, '')
		from file_permissions p
		left join employees e on e.id = p.employee_id
		where p.file_id = $1
		order by p.employee_id asc
	`, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []docshare.GrantDetail
	for rows.Next() {
		var d docshare.GrantDetail
		if err := rows.Scan(&d.FileID, &d.EmployeeID, &d.PermissionType, &d.GrantedBy, &d.GrantedAt,
			&d.FullName, &d.Email, &d.Department); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
