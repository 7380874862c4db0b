package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dompet/internal/core"
	"dompet/internal/storage"
)

// run parses args into a fresh command tree and executes the selected command,
// returning what it printed.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	prev := stdout
	stdout = &out
	t.Cleanup(func() { stdout = prev })

	var app commands
	parser, err := kong.New(&app, append(options(), kong.Exit(func(int) { t.Fatal("unexpected exit") }))...)
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	if err != nil {
		return "", err
	}
	err = kctx.Run(&app.Globals)
	return out.String(), err
}

type seeded struct {
	db      string
	user    core.User
	project core.Project
}

func seed(t *testing.T) seeded {
	t.Helper()
	ctx := context.Background()
	db := filepath.Join(t.TempDir(), "dompet.db")
	repo, err := storage.NewSQLiteRepository(db)
	require.NoError(t, err)
	defer repo.Close()

	u, err := repo.CreateUser(ctx, core.User{Email: "ana@example.com", Username: "ana", FullName: "Ana", PasswordHash: "x"})
	require.NoError(t, err)
	p, err := repo.CreateProject(ctx, core.Project{Name: "Home", OwnerID: u.ID})
	require.NoError(t, err)

	date := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	for _, tx := range []core.Transaction{
		{Amount: 1000, Category: core.Income, Description: "Salary"},
		{Amount: 200, Category: core.Living, Description: `Rice "5kg"`},
		{Amount: 50, Category: core.Saving, Description: "Pot"},
	} {
		tx.ProjectID, tx.UserID, tx.Date = p.ID, u.ID, date
		_, err := repo.Create(ctx, tx)
		require.NoError(t, err)
	}
	return seeded{db: db, user: u, project: p}
}

func TestSummary(t *testing.T) {
	s := seed(t)
	out, err := run(t, "--db", s.db, "--currency", "IDR", "summary", "--project", s.project.ID, "--month", "2024-03")
	require.NoError(t, err)

	assert.Contains(t, out, "Selection:     2024-03")
	assert.Contains(t, out, "Income:        "+core.FormatAmount(1000, "IDR"))
	assert.Contains(t, out, "Expense:       "+core.FormatAmount(250, "IDR"))
	assert.Contains(t, out, "Savings:       "+core.FormatAmount(50, "IDR"))
	assert.Contains(t, out, "Living")
}

func TestSummaryUnknownProject(t *testing.T) {
	s := seed(t)
	_, err := run(t, "--db", s.db, "summary", "--project", "nope", "--month", "2024-03")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestExportThenImport(t *testing.T) {
	s := seed(t)
	file := filepath.Join(t.TempDir(), "march.csv")

	out, err := run(t, "--db", s.db, "export", "--project", s.project.ID, "--month", "2024-03", "--sort", "highest", "-o", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 3 transactions")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Date,Category,Description,Amount,Type", lines[0])
	assert.Equal(t, `2024-03-05T00:00:00Z,Income,"Salary",1000,Income`, lines[1])
	assert.Equal(t, `2024-03-05T00:00:00Z,Living,"Rice ""5kg""",200,Expense`, lines[2])

	out, err = run(t, "--db", s.db, "import", "--project", s.project.ID, "--user", "ana@example.com", "--file", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 3 transactions")

	out, err = run(t, "--db", s.db, "export", "--project", s.project.ID, "--month", "all", "-o", "-")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 7)
}

func TestImportUnknownUser(t *testing.T) {
	s := seed(t)
	file := filepath.Join(t.TempDir(), "in.csv")
	require.NoError(t, os.WriteFile(file, []byte("Date,Category,Description,Amount,Type\n"), 0o644))

	_, err := run(t, "--db", s.db, "import", "--project", s.project.ID, "--user", "bob", "--file", file)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestBudgetSet(t *testing.T) {
	s := seed(t)
	out, err := run(t, "--db", s.db, "budget", "set", "--project", s.project.ID, "--month", "2024-03", "--amount", "1.000")
	require.NoError(t, err)
	assert.Contains(t, out, "Budget for 2024-03 set to")

	repo, err := storage.NewSQLiteRepository(s.db)
	require.NoError(t, err)
	defer repo.Close()
	b, err := repo.GetBudget(context.Background(), s.project.ID, "", "2024-03")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), b.Amount)

	_, err = run(t, "--db", s.db, "budget", "set", "--project", s.project.ID, "--month", "March", "--amount", "10")
	assert.True(t, core.IsValidation(err))
}

func TestMigrate(t *testing.T) {
	db := filepath.Join(t.TempDir(), "fresh.db")
	out, err := run(t, "--db", db, "migrate")
	require.NoError(t, err)
	assert.Equal(t, "Schema at version 2\n", out)
}

func TestReindexWithoutMirrors(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")
	t.Setenv("ELASTICSEARCH_URL", "")
	s := seed(t)
	_, err := run(t, "--db", s.db, "reindex", "--project", s.project.ID)
	assert.ErrorContains(t, err, "no mirror configured")
}
