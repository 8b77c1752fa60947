package directory

import (
	"context"
	"errors"
	"testing"

	"peopledesk.org/internal/auth"
)

type failingSink struct{ err error }

func (f *failingSink) SaveCredential(ctx context.Context, email, passwordHash, role string) error {
	return f.err
}
func (f *failingSink) RenameCredential(ctx context.Context, oldEmail, newEmail, role string) error {
	return f.err
}
func (f *failingSink) DeleteCredential(ctx context.Context, email string) error { return f.err }

func TestCreateProvisionsCredential(t *testing.T) {
	creds := auth.NewInMemoryStore()
	dir := NewInMemory(creds)
	ctx := context.Background()

	emp, err := dir.Create(ctx, Employee{FullName: "  Mia Mora  ", Email: "MIA@Corp.Test", Role: "Admin"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if emp.ID == 0 {
		t.Fatalf("expected assigned id")
	}
	if emp.Email != "mia@corp.test" || emp.Role != "admin" || emp.FullName != "Mia Mora" {
		t.Fatalf("fields not normalized: %+v", emp)
	}

	cred, err := creds.FindCredential(ctx, "mia@corp.test")
	if err != nil {
		t.Fatalf("credential not provisioned: %v", err)
	}
	if cred.Role != "admin" {
		t.Fatalf("credential role mismatch: %q", cred.Role)
	}
	if err := auth.VerifyPassword(cred.PasswordHash, DefaultOnboardPassword); err != nil {
		t.Fatalf("onboard password must verify: %v", err)
	}
}

func TestCreateSurvivesSinkFailure(t *testing.T) {
	dir := NewInMemory(&failingSink{err: errors.New("users table unavailable")})

	emp, err := dir.Create(context.Background(), Employee{FullName: "Jon Byte", Email: "jon@corp.test"})
	if !errors.Is(err, ErrCredentialProvision) {
		t.Fatalf("expected ErrCredentialProvision, got %v", err)
	}
	if emp.ID == 0 {
		t.Fatalf("employee must still be returned on sink failure")
	}
	// The directory row stands even though provisioning failed.
	if _, err := dir.Get(context.Background(), emp.ID); err != nil {
		t.Fatalf("employee row missing after sink failure: %v", err)
	}
}

func TestCreateDuplicateEmail(t *testing.T) {
	dir := NewInMemory(nil)
	ctx := context.Background()

	if _, err := dir.Create(ctx, Employee{FullName: "A", Email: "dup@corp.test"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := dir.Create(ctx, Employee{FullName: "B", Email: "DUP@corp.test"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	dir := NewInMemory(nil)
	ctx := context.Background()

	if _, err := dir.Create(ctx, Employee{Email: "x@corp.test"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing name: expected ErrInvalidInput, got %v", err)
	}
	if _, err := dir.Create(ctx, Employee{FullName: "X", Email: "not-an-email"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("bad email: expected ErrInvalidInput, got %v", err)
	}

	emp, err := dir.Create(ctx, Employee{FullName: "X", Email: "x@corp.test"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if emp.Role != "staff" {
		t.Fatalf("empty role must default to staff, got %q", emp.Role)
	}
}

func TestUpdateRenamesCredential(t *testing.T) {
	creds := auth.NewInMemoryStore()
	dir := NewInMemory(creds)
	ctx := context.Background()

	emp, err := dir.Create(ctx, Employee{FullName: "Rob Roe", Email: "rob@corp.test"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := dir.Update(ctx, emp.ID, Employee{FullName: "Rob Roe", Email: "robert@corp.test", Role: "admin"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Email != "robert@corp.test" {
		t.Fatalf("email not updated: %q", updated.Email)
	}
	if !updated.CreatedAt.Equal(emp.CreatedAt) {
		t.Fatalf("update must preserve created_at")
	}

	if _, err := creds.FindCredential(ctx, "rob@corp.test"); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("old credential should be gone, got %v", err)
	}
	cred, err := creds.FindCredential(ctx, "robert@corp.test")
	if err != nil {
		t.Fatalf("renamed credential missing: %v", err)
	}
	if cred.Role != "admin" {
		t.Fatalf("credential role not updated: %q", cred.Role)
	}
}

func TestUpdateUnknownEmployee(t *testing.T) {
	dir := NewInMemory(nil)
	if _, err := dir.Update(context.Background(), 77, Employee{FullName: "G", Email: "g@corp.test"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteRemovesCredential(t *testing.T) {
	creds := auth.NewInMemoryStore()
	dir := NewInMemory(creds)
	ctx := context.Background()

	emp, err := dir.Create(ctx, Employee{FullName: "Tia Tam", Email: "tia@corp.test"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := dir.Delete(ctx, emp.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := dir.Get(ctx, emp.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := creds.FindCredential(ctx, "tia@corp.test"); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("credential should be removed with the employee, got %v", err)
	}
	if err := dir.Delete(ctx, emp.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestGetByEmailIsCaseInsensitive(t *testing.T) {
	dir := NewInMemory(nil)
	ctx := context.Background()

	if _, err := dir.Create(ctx, Employee{FullName: "Kim Key", Email: "kim@corp.test"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	emp, err := dir.GetByEmail(ctx, "  KIM@corp.TEST ")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if emp.Email != "kim@corp.test" {
		t.Fatalf("unexpected email %q", emp.Email)
	}
}

func TestListSortedByName(t *testing.T) {
	dir := NewInMemory(nil)
	ctx := context.Background()
	for _, name := range []string{"Zara", "Abel", "Mori"} {
		if _, err := dir.Create(ctx, Employee{FullName: name, Email: name + "@corp.test"}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
	out, err := dir.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 3 || out[0].FullName != "Abel" || out[2].FullName != "Zara" {
		t.Fatalf("list not sorted by name: %+v", out)
	}
}
