package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"peopledesk.org/internal/auth"
	"peopledesk.org/internal/directory"
)

// DirectoryStore implements the employee directory over PostgreSQL. Login
// rows ride behind directory writes through the auth store.
type DirectoryStore struct {
	db    *sql.DB
	creds *AuthStore
}

const employeeColumns = `id, full_name, gender, birthday, email, phone, address,
	department, position, start_date, salary, role, avatar_url, created_at`

func scanEmployee(row interface{ Scan(...any) error }) (directory.Employee, error) {
	var emp directory.Employee
	var birthday, startDate sql.NullTime
	err := row.Scan(&emp.ID, &emp.FullName, &emp.Gender, &birthday, &emp.Email,
		&emp.Phone, &emp.Address, &emp.Department, &emp.Position, &startDate,
		&emp.Salary, &emp.Role, &emp.AvatarURL, &emp.CreatedAt)
	if err != nil {
		return directory.Employee{}, err
	}
	emp.Birthday = dateString(birthday)
	emp.StartDate = dateString(startDate)
	return emp, nil
}

func (s *DirectoryStore) Create(ctx context.Context, emp directory.Employee) (directory.Employee, error) {
	if err := directory.Normalize(&emp); err != nil {
		return directory.Employee{}, err
	}
	err := s.db.QueryRowContext(ctx, `
		insert into employees(full_name, gender, birthday, email, phone, address,
			department, position, start_date, salary, role, avatar_url)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		returning id, created_at
	`, emp.FullName, emp.Gender, dateArg(emp.Birthday), emp.Email, emp.Phone,
		emp.Address, emp.Department, emp.Position, dateArg(emp.StartDate),
		emp.Salary, emp.Role, emp.AvatarURL).Scan(&emp.ID, &emp.CreatedAt)
	if isUniqueViolation(err) {
		return directory.Employee{}, directory.ErrEmailTaken
	}
	if err != nil {
		return directory.Employee{}, err
	}

	// A credential failure after the committed employee insert is surfaced,
	// not rolled back. The employee row stands.
	hash, err := auth.HashPassword(directory.DefaultOnboardPassword)
	if err == nil {
		err = s.creds.SaveCredential(ctx, emp.Email, hash, emp.Role)
	}
	if err != nil {
		return emp, fmt.Errorf("%w: %v", directory.ErrCredentialProvision, err)
	}
	return emp, nil
}

func (s *DirectoryStore) Update(ctx context.Context, id int64, emp directory.Employee) (directory.Employee, error) {
	if err := directory.Normalize(&emp); err != nil {
		return directory.Employee{}, err
	}
	var oldEmail string
	err := s.db.QueryRowContext(ctx, `select email from employees where id=$1`, id).Scan(&oldEmail)
	if errors.Is(err, sql.ErrNoRows) {
		return directory.Employee{}, directory.ErrNotFound
	}
	if err != nil {
		return directory.Employee{}, err
	}

	err = s.db.QueryRowContext(ctx, `
		update employees set full_name=$2, gender=$3, birthday=$4, email=$5,
			phone=$6, address=$7, department=$8, position=$9, start_date=$10,
			salary=$11, role=$12, avatar_url=$13
		where id=$1
		returning created_at
	`, id, emp.FullName, emp.Gender, dateArg(emp.Birthday), emp.Email, emp.Phone,
		emp.Address, emp.Department, emp.Position, dateArg(emp.StartDate),
		emp.Salary, emp.Role, emp.AvatarURL).Scan(&emp.CreatedAt)
	if isUniqueViolation(err) {
		return directory.Employee{}, directory.ErrEmailTaken
	}
	if err != nil {
		return directory.Employee{}, err
	}
	emp.ID = id

	if err := s.creds.RenameCredential(ctx, oldEmail, emp.Email, emp.Role); err != nil {
		return emp, fmt.Errorf("%w: %v", directory.ErrCredentialProvision, err)
	}
	return emp, nil
}

func (s *DirectoryStore) Delete(ctx context.Context, id int64) error {
	var email string
	err := s.db.QueryRowContext(ctx, `delete from employees where id=$1 returning email`, id).Scan(&email)
	if errors.Is(err, sql.ErrNoRows) {
		return directory.ErrNotFound
	}
	if err != nil {
		return err
	}
	_ = s.creds.DeleteCredential(ctx, email)
	return nil
}

func (s *DirectoryStore) Get(ctx context.Context, id int64) (directory.Employee, error) {
	emp, err := scanEmployee(s.db.QueryRowContext(ctx,
		`select `+employeeColumns+` from employees where id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return directory.Employee{}, directory.ErrNotFound
	}
	return emp, err
}

func (s *DirectoryStore) GetByEmail(ctx context.Context, email string) (directory.Employee, error) {
	emp, err := scanEmployee(s.db.QueryRowContext(ctx,
		`select `+employeeColumns+` from employees where lower(email)=lower($1)`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return directory.Employee{}, directory.ErrNotFound
	}
	return emp, err
}

func (s *DirectoryStore) List(ctx context.Context) ([]directory.Employee, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+employeeColumns+` from employees order by full_name asc, id asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []directory.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}
