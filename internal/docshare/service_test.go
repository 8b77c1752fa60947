package docshare

import (
	"context"
	"errors"
	"testing"

	"peopledesk.org/internal/directory"
)

func seedDirectory(t *testing.T) (*directory.InMemory, directory.Employee, directory.Employee, directory.Employee) {
	t.Helper()
	dir := directory.NewInMemory(nil)
	ctx := context.Background()

	admin, err := dir.Create(ctx, directory.Employee{FullName: "Ada Admin", Email: "ada@corp.test", Role: "admin"})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	staff, err := dir.Create(ctx, directory.Employee{FullName: "Sam Staff", Email: "sam@corp.test", Role: "staff"})
	if err != nil {
		t.Fatalf("create staff: %v", err)
	}
	other, err := dir.Create(ctx, directory.Employee{FullName: "Olga Other", Email: "olga@corp.test", Role: "staff"})
	if err != nil {
		t.Fatalf("create other: %v", err)
	}
	return dir, admin, staff, other
}

func TestAccessibleForEmployeeAudiences(t *testing.T) {
	dir, admin, staff, other := seedDirectory(t)
	svc := NewInMemory(dir)
	ctx := context.Background()

	mustCreate := func(spec CreateSpec) CreateResult {
		t.Helper()
		res, err := svc.Create(ctx, spec)
		if err != nil {
			t.Fatalf("create %q: %v", spec.Name, err)
		}
		return res
	}

	mustCreate(CreateSpec{Name: "handbook.pdf", URL: "/files/handbook.pdf", Audience: AudienceAll, CreatedBy: admin.ID})
	mustCreate(CreateSpec{Name: "staff-only.pdf", URL: "/files/staff.pdf", Audience: AudienceStaff, CreatedBy: admin.ID})
	single := mustCreate(CreateSpec{
		Name: "payslip.pdf", URL: "/files/payslip.pdf",
		Audience: AudienceSingle, CreatedBy: admin.ID, AssigneeID: staff.ID,
	})
	if !single.Assigned {
		t.Fatalf("expected single-audience create to write a grant")
	}

	// Staff member sees all three: universal, staff-tier, and the grant.
	docs, err := svc.AccessibleForEmployee(ctx, staff.ID)
	if err != nil {
		t.Fatalf("resolve staff: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("staff expected 3 accessible documents, got %d", len(docs))
	}

	// A staff colleague without the grant sees only two.
	docs, err = svc.AccessibleForEmployee(ctx, other.ID)
	if err != nil {
		t.Fatalf("resolve other: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("other expected 2 accessible documents, got %d", len(docs))
	}

	// The admin is not on the staff tier and holds no grant.
	docs, err = svc.AccessibleForEmployee(ctx, admin.ID)
	if err != nil {
		t.Fatalf("resolve admin: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("admin expected 1 accessible document, got %d", len(docs))
	}
	if docs[0].Name != "handbook.pdf" {
		t.Fatalf("admin should only see the universal document, got %q", docs[0].Name)
	}

	if _, err := svc.AccessibleForEmployee(ctx, 9999); !errors.Is(err, ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}
}

func TestSingleAudienceGrantCarriesPermissionType(t *testing.T) {
	dir, admin, staff, _ := seedDirectory(t)
	svc := NewInMemory(dir)
	ctx := context.Background()

	res, err := svc.Create(ctx, CreateSpec{
		Name: "contract.pdf", URL: "/files/contract.pdf",
		Audience: AudienceSingle, CreatedBy: admin.ID, AssigneeEmail: staff.Email,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	docs, err := svc.AccessibleForEmployee(ctx, staff.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	if docs[0].ID != res.FileID {
		t.Fatalf("unexpected document id %d", docs[0].ID)
	}
	if docs[0].PermissionType != PermissionBoth {
		t.Fatalf("create-time grant should default to both, got %q", docs[0].PermissionType)
	}
}

func TestGrantUpsertLastWriteWins(t *testing.T) {
	dir, admin, staff, _ := seedDirectory(t)
	svc := NewInMemory(dir)
	ctx := context.Background()

	res, err := svc.Create(ctx, CreateSpec{
		Name: "report.xlsx", URL: "/files/report.xlsx",
		Audience: AudienceSingle, CreatedBy: admin.ID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Grant(ctx, Grant{FileID: res.FileID, EmployeeID: staff.ID, PermissionType: PermissionView}); err != nil {
		t.Fatalf("first grant: %v", err)
	}
	if err := svc.Grant(ctx, Grant{FileID: res.FileID, EmployeeID: staff.ID, PermissionType: PermissionDownload}); err != nil {
		t.Fatalf("second grant: %v", err)
	}

	perms, err := svc.Permissions(ctx, res.FileID)
	if err != nil {
		t.Fatalf("permissions: %v", err)
	}
	if len(perms) != 1 {
		t.Fatalf("re-granting must not duplicate rows, got %d", len(perms))
	}
	if perms[0].PermissionType != PermissionDownload {
		t.Fatalf("last grant should win, got %q", perms[0].PermissionType)
	}
}

func TestRevokeRemovesAccess(t *testing.T) {
	dir, admin, staff, _ := seedDirectory(t)
	svc := NewInMemory(dir)
	ctx := context.Background()

	res, err := svc.Create(ctx, CreateSpec{
		Name: "review.docx", URL: "/files/review.docx",
		Audience: AudienceSingle, CreatedBy: admin.ID, AssigneeID: staff.ID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Revoke(ctx, res.FileID, staff.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	docs, err := svc.AccessibleForEmployee(ctx, staff.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("revoked document still accessible")
	}

	// Revoking a missing grant is a no-op.
	if err := svc.Revoke(ctx, res.FileID, staff.ID); err != nil {
		t.Fatalf("second revoke should be idempotent: %v", err)
	}
}

func TestCreateLenientAssignee(t *testing.T) {
	dir, admin, _, _ := seedDirectory(t)
	svc := NewInMemory(dir)
	ctx := context.Background()

	res, err := svc.Create(ctx, CreateSpec{
		Name: "memo.txt", URL: "/files/memo.txt",
		Audience: AudienceSingle, CreatedBy: admin.ID, AssigneeEmail: "ghost@corp.test",
	})
	if err != nil {
		t.Fatalf("create with unknown assignee must not fail: %v", err)
	}
	if res.Assigned {
		t.Fatalf("no grant should be written for an unknown assignee")
	}
	if res.Note == "" {
		t.Fatalf("partial outcome must carry a note")
	}

	perms, err := svc.Permissions(ctx, res.FileID)
	if err != nil {
		t.Fatalf("permissions: %v", err)
	}
	if len(perms) != 0 {
		t.Fatalf("expected no grants, got %d", len(perms))
	}
}

func TestCreateRejectsUnknownCreator(t *testing.T) {
	dir, _, _, _ := seedDirectory(t)
	svc := NewInMemory(dir)

	_, err := svc.Create(context.Background(), CreateSpec{
		Name: "x.pdf", URL: "/files/x.pdf", Audience: AudienceAll, CreatedBy: 424242,
	})
	if !errors.Is(err, ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}

	all, err := svc.ListAll(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("failed create must persist nothing, got %d documents", len(all))
	}
}

func TestCreateValidation(t *testing.T) {
	dir, admin, _, _ := seedDirectory(t)
	svc := NewInMemory(dir)
	ctx := context.Background()

	cases := []struct {
		name string
		spec CreateSpec
	}{
		{"missing name", CreateSpec{URL: "/f", Audience: AudienceAll, CreatedBy: admin.ID}},
		{"missing url", CreateSpec{Name: "f", Audience: AudienceAll, CreatedBy: admin.ID}},
		{"bad audience", CreateSpec{Name: "f", URL: "/f", Audience: "everyone", CreatedBy: admin.ID}},
		{"missing creator", CreateSpec{Name: "f", URL: "/f", Audience: AudienceAll}},
	}
	for _, tc := range cases {
		if _, err := svc.Create(ctx, tc.spec); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
}

func TestDeleteDocumentCascadesGrants(t *testing.T) {
	dir, admin, staff, _ := seedDirectory(t)
	svc := NewInMemory(dir)
	ctx := context.Background()

	res, err := svc.Create(ctx, CreateSpec{
		Name: "old.pdf", URL: "/files/old.pdf",
		Audience: AudienceSingle, CreatedBy: admin.ID, AssigneeID: staff.ID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(ctx, res.FileID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, res.FileID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}

	docs, err := svc.AccessibleForEmployee(ctx, staff.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("deleted document still resolvable")
	}
}
