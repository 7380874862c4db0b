package memory

import (
	"context"
	"testing"
	"time"

	"dompet/internal/core"
	"dompet/internal/ports"
)

func seedProject(t *testing.T, s *Store) (core.User, core.Project) {
	t.Helper()
	ctx := context.Background()
	u, err := s.CreateUser(ctx, core.User{Email: "ana@example.com", Username: "ana", FullName: "Ana"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	p, err := s.CreateProject(ctx, core.Project{Name: "Home", OwnerID: u.ID})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return u, p
}

func TestCreateAndListOrdering(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	s := New().WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})
	u, p := seedProject(t, s)

	day := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	first, _ := s.Create(ctx, core.Transaction{ProjectID: p.ID, UserID: u.ID, Category: core.Living, Amount: 1, Description: "a", Date: day})
	second, _ := s.Create(ctx, core.Transaction{ProjectID: p.ID, UserID: u.ID, Category: core.Living, Amount: 2, Description: "b", Date: day})
	older, _ := s.Create(ctx, core.Transaction{ProjectID: p.ID, UserID: u.ID, Category: core.Income, Amount: 3, Description: "c", Date: day.AddDate(0, -1, 0)})
	_, _ = s.Create(ctx, core.Transaction{ProjectID: "other", Category: core.Living, Amount: 9, Description: "x", Date: day})

	got, err := s.ListByProject(ctx, p.ID, ports.ListQuery{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{second, first, older}
	if len(got) != len(want) {
		t.Fatalf("got %d rows, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("row %d = %s, want %s", i, got[i].ID, id)
		}
	}
	if got[0].Author != "Ana" {
		t.Errorf("author = %q, want Ana", got[0].Author)
	}

	feb, _ := s.ListByProject(ctx, p.ID, ports.ListQuery{Selector: "2024-02"})
	if len(feb) != 2 {
		t.Errorf("february rows = %d, want 2", len(feb))
	}
}

func TestPersonalRowsFilteredByAuthor(t *testing.T) {
	ctx := context.Background()
	s := New()
	day := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	mine, _ := s.Create(ctx, core.Transaction{UserID: "u1", Category: core.Living, Amount: 1, Description: "a", Date: day})
	_, _ = s.Create(ctx, core.Transaction{UserID: "u2", Category: core.Living, Amount: 2, Description: "b", Date: day})
	_, _ = s.Create(ctx, core.Transaction{ProjectID: "p", UserID: "u1", Category: core.Living, Amount: 3, Description: "c", Date: day})

	got, err := s.ListByProject(ctx, "", ports.ListQuery{UserID: "u1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != mine {
		t.Fatalf("personal rows = %+v, want only %s", got, mine)
	}
}

func TestCreatePairIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := New()
	primary := core.Transaction{ProjectID: "p", Category: core.Living, Amount: 5, Description: "a", Date: time.Now()}
	offset := core.Transaction{ProjectID: "q", Category: core.Saving, Amount: -5, Description: "Cover for: a", Date: time.Now()}

	if _, _, err := s.CreatePair(ctx, primary, offset); err == nil {
		t.Fatal("expected error for cross-project pair")
	}
	if rows, _ := s.ListByProject(ctx, "p", ports.ListQuery{}); len(rows) != 0 {
		t.Fatalf("partial pair stored: %v", rows)
	}

	offset.ProjectID = "p"
	a, b, err := s.CreatePair(ctx, primary, offset)
	if err != nil || a == "" || b == "" || a == b {
		t.Fatalf("pair = %q %q %v", a, b, err)
	}
}

func TestUpdateDeleteScopedToProject(t *testing.T) {
	ctx := context.Background()
	s := New()
	id, _ := s.Create(ctx, core.Transaction{ProjectID: "p", Category: core.Living, Amount: 5, Description: "a", Date: time.Now()})

	amount := int64(7)
	if err := s.Update(ctx, "other", id, core.TransactionPatch{Amount: &amount}); err != core.ErrNotFound {
		t.Fatalf("cross-project update = %v", err)
	}
	if err := s.Update(ctx, "p", id, core.TransactionPatch{Amount: &amount}); err != nil {
		t.Fatalf("update: %v", err)
	}
	tx, _ := s.Get(ctx, id)
	if tx.Amount != 7 || tx.ProjectID != "p" {
		t.Fatalf("after update: %+v", tx)
	}
	if err := s.Delete(ctx, "other", id); err != core.ErrNotFound {
		t.Fatalf("cross-project delete = %v", err)
	}
	if err := s.Delete(ctx, "p", id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, id); err != core.ErrNotFound {
		t.Fatalf("get after delete = %v", err)
	}
}

func TestProjectsAndMembers(t *testing.T) {
	ctx := context.Background()
	s := New()
	owner, p := seedProject(t, s)

	m, err := s.GetMembership(ctx, p.ID, owner.ID)
	if err != nil || m.Role != core.RoleOwner {
		t.Fatalf("owner membership = %+v %v", m, err)
	}

	guest, _ := s.CreateUser(ctx, core.User{Email: "bo@example.com", Username: "bo"})
	if err := s.AddMember(ctx, core.Member{ProjectID: p.ID, UserID: guest.ID, Role: core.RoleMember}); err != nil {
		t.Fatalf("add member: %v", err)
	}
	if err := s.AddMember(ctx, core.Member{ProjectID: p.ID, UserID: guest.ID, Role: core.RoleMember}); err != core.ErrConflict {
		t.Fatalf("duplicate member = %v", err)
	}

	date := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	_, _ = s.Create(ctx, core.Transaction{ProjectID: p.ID, Category: core.Living, Amount: 1, Description: "a", Date: date})

	list, _ := s.ListProjectsForUser(ctx, guest.ID)
	if len(list) != 1 {
		t.Fatalf("projects = %d", len(list))
	}
	d := list[0]
	if d.Role != core.RoleMember || d.OwnerName != "Ana" || d.OwnerUsername != "ana" {
		t.Errorf("details = %+v", d)
	}
	if d.LastTransactionDate == nil || !d.LastTransactionDate.Equal(date) {
		t.Errorf("last transaction = %v", d.LastTransactionDate)
	}
}

func TestUsersUnique(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, err := s.CreateUser(ctx, core.User{Email: "a@x.io", Username: "a"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateUser(ctx, core.User{Email: "A@X.io", Username: "b"}); err != core.ErrConflict {
		t.Fatalf("duplicate email = %v", err)
	}
	if _, err := s.CreateUser(ctx, core.User{Email: "b@x.io", Username: "A"}); err != core.ErrConflict {
		t.Fatalf("duplicate username = %v", err)
	}
	u, err := s.GetUserByUsername(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.UpdatePasswordHash(ctx, u.ID, "h"); err != nil {
		t.Fatal(err)
	}
	u, _ = s.GetUserByEmail(ctx, "a@x.io")
	if u.PasswordHash != "h" {
		t.Fatalf("hash = %q", u.PasswordHash)
	}
}

func TestBudgets(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, err := s.GetBudget(ctx, "p", "", "2024-01"); err != core.ErrNotFound {
		t.Fatalf("missing budget = %v", err)
	}
	_ = s.UpsertBudget(ctx, core.Budget{ProjectID: "p", Month: "2024-01", Amount: 10})
	_ = s.UpsertBudget(ctx, core.Budget{ProjectID: "p", Month: "2024-01", Amount: 20})
	b, err := s.GetBudget(ctx, "p", "", "2024-01")
	if err != nil || b.Amount != 20 {
		t.Fatalf("budget = %+v %v", b, err)
	}
	if _, err := s.GetBudget(ctx, "", "u1", "2024-01"); err != core.ErrNotFound {
		t.Fatalf("personal budget leaked from project: %v", err)
	}
}
