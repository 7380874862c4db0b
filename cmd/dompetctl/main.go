// Command dompetctl administers a dompet SQLite database offline.
package main

import (
	"github.com/alecthomas/kong"

	"dompet/internal/cli"
)

// Globals holds options shared by every command.
type Globals struct {
	DB       string `help:"SQLite database path." env:"SQLITE_DB_PATH" default:"./data/dompet.db" type:"path"`
	Currency string `help:"Currency used to format amounts." env:"CURRENCY" default:"IDR"`
	LogLevel string `help:"Log level (debug, info, warn, error)." env:"LOG_LEVEL" default:"warn"`
}

type commands struct {
	Globals `embed:""`

	Summary summaryCmd `cmd:"" help:"Print the dashboard figures of a project."`
	Export  exportCmd  `cmd:"" help:"Write a project's transactions as CSV."`
	Import  importCmd  `cmd:"" help:"Load transactions from a CSV export."`
	Budget  budgetCmd  `cmd:"" help:"Manage monthly budget overrides."`
	Migrate migrateCmd `cmd:"" help:"Apply pending schema migrations."`
	Reindex reindexCmd `cmd:"" help:"Push every transaction of a project to the configured mirrors."`
}

func options() []kong.Option {
	return []kong.Option{
		kong.Name("dompetctl"),
		kong.Description("Offline administration for dompet ledgers."),
		kong.UsageOnError(),
	}
}

func main() {
	cli.LoadEnvFile()
	var app commands
	ctx := kong.Parse(&app, options()...)
	err := ctx.Run(&app.Globals)
	ctx.FatalIfErrorf(err)
}
