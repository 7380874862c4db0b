package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dompet/internal/core"
	"dompet/internal/ports"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "dompet.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seed(t *testing.T, repo *SQLiteRepository) (core.User, core.Project) {
	t.Helper()
	ctx := context.Background()
	u, err := repo.CreateUser(ctx, core.User{Email: "ana@example.com", Username: "ana", FullName: "Ana", PasswordHash: "x"})
	require.NoError(t, err)
	p, err := repo.CreateProject(ctx, core.Project{Name: "Home", OwnerID: u.ID})
	require.NoError(t, err)
	return u, p
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	require.NoError(t, RunMigrations(path))
	require.NoError(t, RunMigrations(path))

	v, dirty, err := SchemaVersion(path)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(2), v)
}

func TestTransactionLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u, p := seed(t, repo)

	date := time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC)
	id, err := repo.Create(ctx, core.Transaction{
		ProjectID: p.ID, UserID: u.ID, Category: core.Living, Amount: 1500, Description: `Rice "5kg"`, Date: date,
	})
	require.NoError(t, err)

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), got.Amount)
	assert.Equal(t, `Rice "5kg"`, got.Description)
	assert.True(t, got.Date.Equal(date))
	assert.Equal(t, "Ana", got.Author)
	assert.False(t, got.CreatedAt.IsZero())

	amount := int64(2000)
	cat := core.Playing
	require.NoError(t, repo.Update(ctx, p.ID, id, core.TransactionPatch{Amount: &amount, Category: &cat}))
	got, _ = repo.Get(ctx, id)
	assert.Equal(t, int64(2000), got.Amount)
	assert.Equal(t, core.Playing, got.Category)
	assert.Equal(t, u.ID, got.UserID)

	assert.ErrorIs(t, repo.Update(ctx, "other", id, core.TransactionPatch{Amount: &amount}), core.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "other", id), core.ErrNotFound)
	require.NoError(t, repo.Delete(ctx, p.ID, id))
	_, err = repo.Get(ctx, id)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestListByProjectOrderAndMonth(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u, p := seed(t, repo)

	clock := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		clock = clock.Add(time.Millisecond)
		return clock
	}

	feb := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	a, _ := repo.Create(ctx, core.Transaction{ProjectID: p.ID, UserID: u.ID, Category: core.Living, Amount: 1, Description: "a", Date: feb})
	b, _ := repo.Create(ctx, core.Transaction{ProjectID: p.ID, UserID: u.ID, Category: core.Living, Amount: 2, Description: "b", Date: feb})
	c, _ := repo.Create(ctx, core.Transaction{ProjectID: p.ID, UserID: u.ID, Category: core.Income, Amount: 3, Description: "c", Date: feb.AddDate(0, -1, 0)})

	all, err := repo.ListByProject(ctx, p.ID, ports.ListQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{b, a, c}, []string{all[0].ID, all[1].ID, all[2].ID})

	month, err := repo.ListByProject(ctx, p.ID, ports.ListQuery{Selector: "2024-01"})
	require.NoError(t, err)
	require.Len(t, month, 1)
	assert.Equal(t, c, month[0].ID)
}

func TestCreatePairRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u, p := seed(t, repo)

	primary := core.Transaction{ProjectID: p.ID, UserID: u.ID, Category: core.Living, Amount: 100, Description: "Trip", Date: time.Now()}
	bad := core.Transaction{ProjectID: p.ID, UserID: u.ID, Category: "Bogus", Amount: -100, Description: "Cover for: Trip", Date: time.Now()}

	_, _, err := repo.CreatePair(ctx, primary, bad)
	require.Error(t, err)
	rows, _ := repo.ListByProject(ctx, p.ID, ports.ListQuery{})
	assert.Empty(t, rows, "primary must not survive a failed pair")

	offset := bad
	offset.Category = core.Saving
	pid, oid, err := repo.CreatePair(ctx, primary, offset)
	require.NoError(t, err)
	assert.NotEqual(t, pid, oid)
	rows, _ = repo.ListByProject(ctx, p.ID, ports.ListQuery{})
	assert.Len(t, rows, 2)
}

func TestBudgetUpsert(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u, p := seed(t, repo)

	_, err := repo.GetBudget(ctx, p.ID, "", "2024-01")
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, repo.UpsertBudget(ctx, core.Budget{ProjectID: p.ID, Month: "2024-01", Amount: 100}))
	require.NoError(t, repo.UpsertBudget(ctx, core.Budget{ProjectID: p.ID, Month: "2024-01", Amount: 250}))
	b, err := repo.GetBudget(ctx, p.ID, "", "2024-01")
	require.NoError(t, err)
	assert.Equal(t, int64(250), b.Amount)

	require.NoError(t, repo.UpsertBudget(ctx, core.Budget{UserID: u.ID, Month: "2024-01", Amount: 40}))
	b, err = repo.GetBudget(ctx, "", u.ID, "2024-01")
	require.NoError(t, err)
	assert.Equal(t, int64(40), b.Amount)
	b, err = repo.GetBudget(ctx, p.ID, "", "2024-01")
	require.NoError(t, err)
	assert.Equal(t, int64(250), b.Amount, "personal budget is separate from the project's")
}

func TestPersonalLedgerRows(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u, p := seed(t, repo)
	other, err := repo.CreateUser(ctx, core.User{Email: "bo@example.com", Username: "bo", PasswordHash: "x"})
	require.NoError(t, err)

	date := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	for _, tx := range []core.Transaction{
		{UserID: u.ID, Category: core.Living, Amount: 1, Description: "mine", Date: date},
		{UserID: other.ID, Category: core.Living, Amount: 2, Description: "theirs", Date: date},
		{ProjectID: p.ID, UserID: u.ID, Category: core.Living, Amount: 3, Description: "shared", Date: date},
	} {
		_, err := repo.Create(ctx, tx)
		require.NoError(t, err)
	}

	rows, err := repo.ListByProject(ctx, "", ports.ListQuery{UserID: u.ID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "mine", rows[0].Description)
	assert.Equal(t, "Ana", rows[0].Author)
}

func TestProjectsMembersUsers(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	owner, p := seed(t, repo)

	m, err := repo.GetMembership(ctx, p.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, core.RoleOwner, m.Role)

	_, err = repo.CreateUser(ctx, core.User{Email: "ANA@example.com", Username: "other", PasswordHash: "x"})
	assert.ErrorIs(t, err, core.ErrConflict)

	guest, err := repo.CreateUser(ctx, core.User{Email: "bo@example.com", Username: "bo", PasswordHash: "x"})
	require.NoError(t, err)
	require.NoError(t, repo.AddMember(ctx, core.Member{ProjectID: p.ID, UserID: guest.ID, Role: core.RoleMember}))
	assert.ErrorIs(t, repo.AddMember(ctx, core.Member{ProjectID: p.ID, UserID: guest.ID, Role: core.RoleMember}), core.ErrConflict)

	date := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	_, err = repo.Create(ctx, core.Transaction{ProjectID: p.ID, UserID: guest.ID, Category: core.Living, Amount: 1, Description: "a", Date: date})
	require.NoError(t, err)

	list, err := repo.ListProjectsForUser(ctx, guest.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, core.RoleMember, list[0].Role)
	assert.Equal(t, "Ana", list[0].OwnerName)
	assert.Equal(t, "ana", list[0].OwnerUsername)
	require.NotNil(t, list[0].LastTransactionDate)
	assert.True(t, list[0].LastTransactionDate.Equal(date))

	byName, err := repo.GetUserByUsername(ctx, "BO")
	require.NoError(t, err)
	assert.Equal(t, guest.ID, byName.ID)

	require.NoError(t, repo.UpdatePasswordHash(ctx, guest.ID, "new"))
	byMail, err := repo.GetUserByEmail(ctx, "bo@example.com")
	require.NoError(t, err)
	assert.Equal(t, "new", byMail.PasswordHash)
}
