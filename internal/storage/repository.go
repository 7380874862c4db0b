package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"dompet/internal/core"
	"dompet/internal/ports"
)

var _ ports.Store = (*SQLiteRepository)(nil)

// timeLayout sorts lexicographically in chronological order and keeps the
// YYYY-MM prefix that month selection relies on.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations before the main pool opens the file.
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping is used by the readiness probe.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *SQLiteRepository) insertTransaction(ctx context.Context, q execer, tx core.Transaction) (string, error) {
	id := uuid.NewString()
	_, err := q.ExecContext(ctx, `
		INSERT INTO transactions (id, amount, category, description, date, project_id, user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, tx.Amount, string(tx.Category), tx.Description, formatTime(tx.Date),
		tx.ProjectID, tx.UserID, formatTime(r.now()))
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, tx core.Transaction) (string, error) {
	id, err := r.insertTransaction(ctx, r.db, tx)
	if err != nil {
		return "", fmt.Errorf("create transaction: %w", err)
	}
	slog.DebugContext(ctx, "Transaction saved to SQLite", "id", id, "category", tx.Category, "amount", tx.Amount)
	return id, nil
}

// CreatePair inserts both records in one SQL transaction.
func (r *SQLiteRepository) CreatePair(ctx context.Context, primary, offset core.Transaction) (string, string, error) {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", "", fmt.Errorf("begin pair: %w", err)
	}
	defer sqlTx.Rollback()

	primaryID, err := r.insertTransaction(ctx, sqlTx, primary)
	if err != nil {
		return "", "", fmt.Errorf("create primary: %w", err)
	}
	offsetID, err := r.insertTransaction(ctx, sqlTx, offset)
	if err != nil {
		return "", "", fmt.Errorf("create offset: %w", err)
	}
	if err := sqlTx.Commit(); err != nil {
		return "", "", fmt.Errorf("commit pair: %w", err)
	}
	slog.DebugContext(ctx, "Transaction pair saved to SQLite", "primary_id", primaryID, "offset_id", offsetID)
	return primaryID, offsetID, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, projectID, id string, patch core.TransactionPatch) error {
	var (
		sets []string
		args []any
	)
	if patch.Amount != nil {
		sets = append(sets, "amount = ?")
		args = append(args, *patch.Amount)
	}
	if patch.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, string(*patch.Category))
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Date != nil {
		sets = append(sets, "date = ?")
		args = append(args, formatTime(*patch.Date))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id, projectID)

	res, err := r.db.ExecContext(ctx,
		"UPDATE transactions SET "+strings.Join(sets, ", ")+" WHERE id = ? AND project_id = ?", args...)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return expectRow(res)
}

func (r *SQLiteRepository) Delete(ctx context.Context, projectID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND project_id = ?`, id, projectID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return expectRow(res)
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

const selectTransaction = `
	SELECT t.id, t.amount, t.category, t.description, t.date, t.project_id, t.user_id, t.created_at,
	       COALESCE(NULLIF(u.full_name, ''), u.username, '')
	FROM transactions t
	LEFT JOIN users u ON u.id = t.user_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s rowScanner) (core.Transaction, error) {
	var (
		tx              core.Transaction
		category        string
		date, createdAt string
	)
	if err := s.Scan(&tx.ID, &tx.Amount, &category, &tx.Description, &date,
		&tx.ProjectID, &tx.UserID, &createdAt, &tx.Author); err != nil {
		return core.Transaction{}, err
	}
	tx.Category = core.Category(category)
	var err error
	if tx.Date, err = parseTime(date); err != nil {
		return core.Transaction{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	if tx.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Transaction{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	if tx.Author == "" {
		tx.Author = core.User{}.DisplayName()
	}
	return tx, nil
}

func (r *SQLiteRepository) ListByProject(ctx context.Context, projectID string, q ports.ListQuery) ([]core.Transaction, error) {
	query := selectTransaction + ` WHERE t.project_id = ?`
	args := []any{projectID}
	if q.UserID != "" {
		query += ` AND t.user_id = ?`
		args = append(args, q.UserID)
	}
	if q.Selector != "" && !q.Selector.IsAll() {
		query += ` AND t.date LIKE ?`
		args = append(args, string(q.Selector)+"%")
	}
	query += ` ORDER BY t.date DESC, t.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (core.Transaction, error) {
	tx, err := scanTransaction(r.db.QueryRowContext(ctx, selectTransaction+` WHERE t.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b core.Budget) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (project_id, user_id, month, amount) VALUES (?, ?, ?, ?)
		ON CONFLICT (project_id, user_id, month) DO UPDATE SET amount = excluded.amount`,
		b.ProjectID, b.UserID, string(b.Month), b.Amount)
	if err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, projectID, userID string, month core.Month) (core.Budget, error) {
	b := core.Budget{ProjectID: projectID, UserID: userID, Month: month}
	err := r.db.QueryRowContext(ctx,
		`SELECT amount FROM budgets WHERE project_id = ? AND user_id = ? AND month = ?`,
		projectID, userID, string(month)).Scan(&b.Amount)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, core.ErrNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

// CreateProject inserts the project and the owner membership atomically.
func (r *SQLiteRepository) CreateProject(ctx context.Context, p core.Project) (core.Project, error) {
	p.ID = uuid.NewString()
	p.CreatedAt = r.now().UTC()

	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Project{}, fmt.Errorf("begin create project: %w", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx,
		`INSERT INTO projects (id, name, owner_id, created_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.Name, p.OwnerID, formatTime(p.CreatedAt)); err != nil {
		return core.Project{}, fmt.Errorf("insert project: %w", err)
	}
	if _, err := sqlTx.ExecContext(ctx,
		`INSERT INTO project_members (project_id, user_id, role) VALUES (?, ?, ?)`,
		p.ID, p.OwnerID, string(core.RoleOwner)); err != nil {
		return core.Project{}, fmt.Errorf("insert owner membership: %w", err)
	}
	if err := sqlTx.Commit(); err != nil {
		return core.Project{}, fmt.Errorf("commit create project: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) GetProject(ctx context.Context, id string) (core.Project, error) {
	var (
		p         core.Project
		createdAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, owner_id, created_at FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.OwnerID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Project{}, core.ErrNotFound
	}
	if err != nil {
		return core.Project{}, fmt.Errorf("get project: %w", err)
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Project{}, fmt.Errorf("parse created_at: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) ListProjectsForUser(ctx context.Context, userID string) ([]core.ProjectDetails, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.owner_id, p.created_at, m.role,
		       COALESCE(NULLIF(o.full_name, ''), o.username, ''), COALESCE(o.username, ''),
		       (SELECT MAX(t.date) FROM transactions t WHERE t.project_id = p.id)
		FROM project_members m
		JOIN projects p ON p.id = m.project_id
		LEFT JOIN users o ON o.id = p.owner_id
		WHERE m.user_id = ?
		ORDER BY p.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []core.ProjectDetails
	for rows.Next() {
		var (
			d         core.ProjectDetails
			role      string
			createdAt string
			last      sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.Name, &d.OwnerID, &createdAt, &role,
			&d.OwnerName, &d.OwnerUsername, &last); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		d.Role = core.Role(role)
		if d.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		if d.OwnerName == "" {
			d.OwnerName = core.User{}.DisplayName()
		}
		if last.Valid {
			t, err := parseTime(last.String)
			if err != nil {
				return nil, fmt.Errorf("parse last transaction date: %w", err)
			}
			d.LastTransactionDate = &t
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) GetMembership(ctx context.Context, projectID, userID string) (core.Member, error) {
	m := core.Member{ProjectID: projectID, UserID: userID}
	var role string
	err := r.db.QueryRowContext(ctx,
		`SELECT role FROM project_members WHERE project_id = ? AND user_id = ?`, projectID, userID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Member{}, core.ErrNotFound
	}
	if err != nil {
		return core.Member{}, fmt.Errorf("get membership: %w", err)
	}
	m.Role = core.Role(role)
	return m, nil
}

func (r *SQLiteRepository) AddMember(ctx context.Context, m core.Member) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO project_members (project_id, user_id, role) VALUES (?, ?, ?)`,
		m.ProjectID, m.UserID, string(m.Role))
	if isUniqueViolation(err) {
		return core.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	u.ID = uuid.NewString()
	u.CreatedAt = r.now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, username, full_name, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Username, u.FullName, u.PasswordHash, formatTime(u.CreatedAt))
	if isUniqueViolation(err) {
		return core.User{}, core.ErrConflict
	}
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

const selectUser = `SELECT id, email, username, full_name, password_hash, created_at FROM users`

func (r *SQLiteRepository) getUser(ctx context.Context, where string, arg any) (core.User, error) {
	var (
		u         core.User
		createdAt string
	)
	err := r.db.QueryRowContext(ctx, selectUser+" WHERE "+where, arg).
		Scan(&u.ID, &u.Email, &u.Username, &u.FullName, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.User{}, fmt.Errorf("parse created_at: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id string) (core.User, error) {
	return r.getUser(ctx, "id = ?", id)
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	return r.getUser(ctx, "email = ? COLLATE NOCASE", email)
}

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	return r.getUser(ctx, "username = ? COLLATE NOCASE", username)
}

func (r *SQLiteRepository) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, hash, userID)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return expectRow(res)
}
