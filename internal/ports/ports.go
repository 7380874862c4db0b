// Package ports declares the persistence boundaries the services depend on.
package ports

import (
	"context"

	"dompet/internal/core"
)

// ListQuery narrows a ledger read. The zero value reads every transaction.
type ListQuery struct {
	// Selector limits rows to one month; empty or AllTime reads everything.
	Selector core.Selector
	// UserID limits rows to one author. Personal ledgers are read with an
	// empty project ID and the owner's UserID.
	UserID string
}

// Ports for outbound adapters.
type (
	TransactionWriter interface {
		Create(ctx context.Context, tx core.Transaction) (id string, err error)
		// CreatePair stores both records or neither.
		CreatePair(ctx context.Context, primary, offset core.Transaction) (primaryID, offsetID string, err error)
		// Update and Delete are scoped to projectID; a row in another
		// project is reported as ErrNotFound.
		Update(ctx context.Context, projectID, id string, patch core.TransactionPatch) error
		Delete(ctx context.Context, projectID, id string) error
	}

	TransactionLister interface {
		// ListByProject returns rows ordered by date then creation time,
		// newest first, with Author resolved.
		ListByProject(ctx context.Context, projectID string, q ListQuery) ([]core.Transaction, error)
		Get(ctx context.Context, id string) (core.Transaction, error)
	}

	BudgetStore interface {
		UpsertBudget(ctx context.Context, b core.Budget) error
		// GetBudget returns ErrNotFound when no override is stored. userID
		// is empty for project budgets and projectID is empty for personal ones.
		GetBudget(ctx context.Context, projectID, userID string, month core.Month) (core.Budget, error)
	}

	ProjectStore interface {
		// CreateProject stores the project and the owner's membership together.
		CreateProject(ctx context.Context, p core.Project) (core.Project, error)
		ListProjectsForUser(ctx context.Context, userID string) ([]core.ProjectDetails, error)
		GetProject(ctx context.Context, id string) (core.Project, error)
		GetMembership(ctx context.Context, projectID, userID string) (core.Member, error)
		// AddMember returns ErrConflict when the user already belongs to the project.
		AddMember(ctx context.Context, m core.Member) error
	}

	UserStore interface {
		// CreateUser returns ErrConflict when the email or username is taken.
		CreateUser(ctx context.Context, u core.User) (core.User, error)
		GetUser(ctx context.Context, id string) (core.User, error)
		GetUserByEmail(ctx context.Context, email string) (core.User, error)
		GetUserByUsername(ctx context.Context, username string) (core.User, error)
		UpdatePasswordHash(ctx context.Context, userID, hash string) error
	}

	// Store is everything a backend provides.
	Store interface {
		TransactionWriter
		TransactionLister
		BudgetStore
		ProjectStore
		UserStore
	}
)
