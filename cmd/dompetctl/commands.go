package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"dompet/internal/backend"
	"dompet/internal/config"
	"dompet/internal/core"
	"dompet/internal/export"
	"dompet/internal/ledger"
	"dompet/internal/log"
	"dompet/internal/services"
	"dompet/internal/storage"
	"dompet/internal/worker"
)

// env bundles what a command needs once the database is open.
type env struct {
	repo   *storage.SQLiteRepository
	txs    *services.TransactionService
	logger *log.Logger
	out    io.Writer
}

var stdout io.Writer = os.Stdout

func (g *Globals) open() (*env, error) {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(g.LogLevel)
	cfg.Output = os.Stderr
	logger := log.New(cfg)
	repo, err := storage.NewSQLiteRepository(g.DB)
	if err != nil {
		return nil, err
	}
	return &env{
		repo:   repo,
		txs:    services.NewTransactionService(repo, repo, repo, nil, logger, services.TransactionOptions{}),
		logger: logger,
		out:    stdout,
	}, nil
}

func (e *env) Close() error { return e.repo.Close() }

// ownerSession acts on behalf of the project owner, which is what an
// operator with database access effectively is.
func (e *env) ownerSession(ctx context.Context, projectID string) (core.Session, error) {
	p, err := e.repo.GetProject(ctx, projectID)
	if err != nil {
		return core.Session{}, fmt.Errorf("project %s: %w", projectID, err)
	}
	return core.Session{UserID: p.OwnerID}, nil
}

// userSession resolves a username or email address.
func (e *env) userSession(ctx context.Context, who string) (core.Session, error) {
	var (
		u   core.User
		err error
	)
	if strings.Contains(who, "@") {
		u, err = e.repo.GetUserByEmail(ctx, who)
	} else {
		u, err = e.repo.GetUserByUsername(ctx, who)
	}
	if err != nil {
		return core.Session{}, fmt.Errorf("user %s: %w", who, err)
	}
	return core.Session{UserID: u.ID, Username: u.Username}, nil
}

type summaryCmd struct {
	Project string `required:"" help:"Project ID."`
	Month   string `help:"Month (YYYY-MM) or 'all'. Defaults to the current month."`
}

func (c *summaryCmd) Run(g *Globals) error {
	ctx := context.Background()
	e, err := g.open()
	if err != nil {
		return err
	}
	defer e.Close()

	sel, err := core.ParseSelector(c.Month, time.Now())
	if err != nil {
		return err
	}
	sess, err := e.ownerSession(ctx, c.Project)
	if err != nil {
		return err
	}
	d, err := e.txs.Dashboard(ctx, sess, c.Project, sel, ledger.HistoryAll)
	if err != nil {
		return err
	}
	printSummary(e.out, d, g.Currency)
	return nil
}

func printSummary(w io.Writer, d ledger.Dashboard, currency string) {
	f := func(v int64) string { return core.FormatAmount(v, currency) }
	fmt.Fprintf(w, "Selection:     %s\n", d.Selector)
	fmt.Fprintf(w, "Income:        %s\n", f(d.Totals.Income))
	fmt.Fprintf(w, "Expense:       %s\n", f(d.Totals.Expense))
	fmt.Fprintf(w, "Cash flow:     %s\n", core.FormatSignedAmount(d.Totals.CashFlow, currency))
	fmt.Fprintf(w, "Balance:       %s\n", f(d.Totals.Balance))
	fmt.Fprintf(w, "Savings:       %s\n", f(d.TotalSavings))
	fmt.Fprintf(w, "Budget:        %s (%s, %s)\n", f(d.Budget.Limit), d.Budget.Source, d.BudgetStatus)
	fmt.Fprintf(w, "Remaining:     %s (%s%% used)\n", f(d.Remaining), d.UsedPercent.StringFixed(2))
	for _, s := range d.Shares {
		fmt.Fprintf(w, "  %-8s %s (%s%%)\n", s.Category, f(s.Amount), s.Percent.StringFixed(2))
	}
}

type exportCmd struct {
	Project  string `required:"" help:"Project ID."`
	Month    string `help:"Month (YYYY-MM) or 'all'. Defaults to the current month."`
	Category string `help:"Only export this category."`
	Sort     string `default:"newest" enum:"newest,oldest,highest,lowest" help:"Row order."`
	Out      string `short:"o" help:"Output file. Defaults to expenses-<month>.csv; '-' writes to stdout."`
}

func (c *exportCmd) Run(g *Globals) error {
	ctx := context.Background()
	e, err := g.open()
	if err != nil {
		return err
	}
	defer e.Close()

	sel, err := core.ParseSelector(c.Month, time.Now())
	if err != nil {
		return err
	}
	opts := ledger.ListOptions{Selector: sel, Sort: ledger.SortOrder(c.Sort)}
	if c.Category != "" {
		if opts.Category, err = core.ParseCategory(c.Category); err != nil {
			return err
		}
	}
	sess, err := e.ownerSession(ctx, c.Project)
	if err != nil {
		return err
	}
	txs, err := e.txs.List(ctx, sess, c.Project, opts)
	if err != nil {
		return err
	}

	if c.Out == "-" {
		return export.Write(e.out, txs)
	}
	path := c.Out
	if path == "" {
		path = export.Filename(sel)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.Write(f, txs); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Wrote %d transactions to %s\n", len(txs), path)
	return nil
}

type importCmd struct {
	Project string `required:"" help:"Project ID."`
	User    string `required:"" help:"Username or email recorded as the author of every row."`
	File    string `required:"" type:"existingfile" help:"CSV file in export format."`
}

func (c *importCmd) Run(g *Globals) error {
	ctx := context.Background()
	e, err := g.open()
	if err != nil {
		return err
	}
	defer e.Close()

	f, err := os.Open(c.File)
	if err != nil {
		return err
	}
	defer f.Close()
	rows, err := export.Parse(f)
	if err != nil {
		return fmt.Errorf("%s: %w", c.File, err)
	}

	sess, err := e.userSession(ctx, c.User)
	if err != nil {
		return err
	}
	n, err := e.txs.Import(ctx, sess, c.Project, rows)
	if err != nil {
		return fmt.Errorf("imported %d of %d rows: %w", n, len(rows), err)
	}
	fmt.Fprintf(e.out, "Imported %d transactions\n", n)
	return nil
}

type budgetCmd struct {
	Set budgetSetCmd `cmd:"" help:"Store the spending limit of one month."`
}

type budgetSetCmd struct {
	Project string `required:"" help:"Project ID."`
	Month   string `required:"" help:"Month (YYYY-MM)."`
	Amount  string `required:"" help:"Limit in whole units; dots are thousands separators."`
}

func (c *budgetSetCmd) Run(g *Globals) error {
	ctx := context.Background()
	e, err := g.open()
	if err != nil {
		return err
	}
	defer e.Close()

	month, err := core.ParseMonth(c.Month)
	if err != nil {
		return err
	}
	amount, err := core.ParseAmount(c.Amount)
	if err != nil {
		return err
	}
	sess, err := e.ownerSession(ctx, c.Project)
	if err != nil {
		return err
	}
	budgets := services.NewBudgetService(e.repo, e.repo, e.txs, e.logger)
	if err := budgets.Set(ctx, sess, c.Project, month, amount); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Budget for %s set to %s\n", month, core.FormatAmount(amount, g.Currency))
	return nil
}

type migrateCmd struct{}

func (c *migrateCmd) Run(g *Globals) error {
	if err := storage.RunMigrations(g.DB); err != nil {
		return err
	}
	version, dirty, err := storage.SchemaVersion(g.DB)
	if err != nil {
		return err
	}
	if dirty {
		return errors.New("schema is dirty, fix the failed migration by hand")
	}
	fmt.Fprintf(stdout, "Schema at version %d\n", version)
	return nil
}

type reindexCmd struct {
	Project string `required:"" help:"Project ID."`
}

func (c *reindexCmd) Run(g *Globals) error {
	ctx := context.Background()
	e, err := g.open()
	if err != nil {
		return err
	}
	defer e.Close()

	mirrors, err := backend.BuildMirrors(ctx, config.Load(), e.logger)
	if err != nil {
		return err
	}
	if len(mirrors) == 0 {
		return errors.New("no mirror configured: set GOOGLE_SPREADSHEET_ID or ELASTICSEARCH_URL")
	}
	if _, err := e.repo.GetProject(ctx, c.Project); err != nil {
		return fmt.Errorf("project %s: %w", c.Project, err)
	}

	w := worker.NewMirrorWorker(e.repo, e.logger, mirrors...)
	n, err := w.Backfill(ctx, c.Project)
	if err != nil {
		return fmt.Errorf("reindexed %d transactions: %w", n, err)
	}
	fmt.Fprintf(e.out, "Reindexed %d transactions into %s\n", n, strings.Join(w.Mirrors(), ", "))
	return nil
}
