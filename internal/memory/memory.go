// Package memory is a process-local implementation of every store port.
// It backs the memory data backend and the service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"dompet/internal/core"
	"dompet/internal/ports"
)

var _ ports.Store = (*Store)(nil)

type memberKey struct{ project, user string }

type budgetKey struct {
	project string
	user    string
	month   core.Month
}

type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	txs      map[string]core.Transaction
	users    map[string]core.User
	projects map[string]core.Project
	members  map[memberKey]core.Role
	budgets  map[budgetKey]int64
}

func New() *Store {
	return &Store{
		now:      time.Now,
		txs:      map[string]core.Transaction{},
		users:    map[string]core.User{},
		projects: map[string]core.Project{},
		members:  map[memberKey]core.Role{},
		budgets:  map[budgetKey]int64{},
	}
}

// WithClock replaces the clock used for CreatedAt stamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (s *Store) Create(_ context.Context, tx core.Transaction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(tx), nil
}

func (s *Store) CreatePair(_ context.Context, primary, offset core.Transaction) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if primary.ProjectID != offset.ProjectID {
		return "", "", fmt.Errorf("pair spans projects %q and %q", primary.ProjectID, offset.ProjectID)
	}
	return s.insertLocked(primary), s.insertLocked(offset), nil
}

func (s *Store) insertLocked(tx core.Transaction) string {
	tx.ID = uuid.NewString()
	tx.Date = tx.Date.UTC()
	tx.CreatedAt = s.now().UTC()
	tx.Author = ""
	s.txs[tx.ID] = tx
	return tx.ID
}

func (s *Store) Update(_ context.Context, projectID, id string, patch core.TransactionPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok || tx.ProjectID != projectID {
		return core.ErrNotFound
	}
	s.txs[id] = patch.Apply(tx)
	return nil
}

func (s *Store) Delete(_ context.Context, projectID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok || tx.ProjectID != projectID {
		return core.ErrNotFound
	}
	delete(s.txs, id)
	return nil
}

func (s *Store) ListByProject(_ context.Context, projectID string, q ports.ListQuery) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel := q.Selector
	if sel == "" {
		sel = core.AllTime
	}
	var out []core.Transaction
	for _, tx := range s.txs {
		if tx.ProjectID != projectID || !sel.Matches(tx.Date) {
			continue
		}
		if q.UserID != "" && tx.UserID != q.UserID {
			continue
		}
		out = append(out, s.withAuthorLocked(tx))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) Get(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	return s.withAuthorLocked(tx), nil
}

func (s *Store) withAuthorLocked(tx core.Transaction) core.Transaction {
	if u, ok := s.users[tx.UserID]; ok {
		tx.Author = u.DisplayName()
	} else {
		tx.Author = core.User{}.DisplayName()
	}
	return tx
}

func (s *Store) UpsertBudget(_ context.Context, b core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets[budgetKey{b.ProjectID, b.UserID, b.Month}] = b.Amount
	return nil
}

func (s *Store) GetBudget(_ context.Context, projectID, userID string, month core.Month) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	amount, ok := s.budgets[budgetKey{projectID, userID, month}]
	if !ok {
		return core.Budget{}, core.ErrNotFound
	}
	return core.Budget{ProjectID: projectID, UserID: userID, Month: month, Amount: amount}, nil
}

func (s *Store) CreateProject(_ context.Context, p core.Project) (core.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[p.OwnerID]; !ok {
		return core.Project{}, core.ErrNotFound
	}
	p.ID = uuid.NewString()
	p.CreatedAt = s.now().UTC()
	s.projects[p.ID] = p
	s.members[memberKey{p.ID, p.OwnerID}] = core.RoleOwner
	return p, nil
}

func (s *Store) GetProject(_ context.Context, id string) (core.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return core.Project{}, core.ErrNotFound
	}
	return p, nil
}

func (s *Store) ListProjectsForUser(_ context.Context, userID string) ([]core.ProjectDetails, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.ProjectDetails
	for key, role := range s.members {
		if key.user != userID {
			continue
		}
		p := s.projects[key.project]
		owner := s.users[p.OwnerID]
		d := core.ProjectDetails{
			Project:       p,
			Role:          role,
			OwnerName:     owner.DisplayName(),
			OwnerUsername: owner.Username,
		}
		for _, tx := range s.txs {
			if tx.ProjectID != p.ID {
				continue
			}
			if d.LastTransactionDate == nil || tx.Date.After(*d.LastTransactionDate) {
				date := tx.Date
				d.LastTransactionDate = &date
			}
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetMembership(_ context.Context, projectID, userID string) (core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	role, ok := s.members[memberKey{projectID, userID}]
	if !ok {
		return core.Member{}, core.ErrNotFound
	}
	return core.Member{ProjectID: projectID, UserID: userID, Role: role}, nil
}

func (s *Store) AddMember(_ context.Context, m core.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[m.ProjectID]; !ok {
		return core.ErrNotFound
	}
	key := memberKey{m.ProjectID, m.UserID}
	if _, ok := s.members[key]; ok {
		return core.ErrConflict
	}
	s.members[key] = m.Role
	return nil
}

func (s *Store) CreateUser(_ context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) || strings.EqualFold(existing.Username, u.Username) {
			return core.User{}, core.ErrConflict
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = s.now().UTC()
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	return s.findUser(func(u core.User) bool { return strings.EqualFold(u.Email, email) })
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (core.User, error) {
	return s.findUser(func(u core.User) bool { return strings.EqualFold(u.Username, username) })
}

func (s *Store) findUser(match func(core.User) bool) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if match(u) {
			return u, nil
		}
	}
	return core.User{}, core.ErrNotFound
}

func (s *Store) UpdatePasswordHash(_ context.Context, userID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return core.ErrNotFound
	}
	u.PasswordHash = hash
	s.users[userID] = u
	return nil
}
