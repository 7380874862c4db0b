package services

import (
	"context"
	"errors"
	"strings"

	"dompet/internal/core"
	"dompet/internal/ports"
)

// authorize checks that the session belongs to a member of the project. An
// empty projectID names the caller's personal ledger, which the caller owns.
func authorize(ctx context.Context, projects ports.ProjectStore, sess core.Session, projectID string) (core.Member, error) {
	if sess.UserID == "" {
		return core.Member{}, core.ErrUnauthorized
	}
	if projectID == "" {
		return core.Member{UserID: sess.UserID, Role: core.RoleOwner}, nil
	}
	m, err := projects.GetMembership(ctx, projectID, sess.UserID)
	if errors.Is(err, core.ErrNotFound) {
		return core.Member{}, core.ErrForbidden
	}
	if err != nil {
		return core.Member{}, core.Backend("get membership", err)
	}
	return m, nil
}

const personalKeyPrefix = "personal/"

// ledgerRef names the ledger a call works on.
type ledgerRef struct {
	projectID string
	// userID is set only for a personal ledger.
	userID string
}

func ledgerFor(sess core.Session, projectID string) ledgerRef {
	if projectID == "" {
		return ledgerRef{userID: sess.UserID}
	}
	return ledgerRef{projectID: projectID}
}

func (l ledgerRef) personal() bool { return l.projectID == "" }

// key identifies the ledger in the snapshot cache. Project IDs are UUIDs and
// never carry the personal prefix.
func (l ledgerRef) key() string {
	if l.personal() {
		return personalKeyPrefix + l.userID
	}
	return l.projectID
}

func refFromKey(key string) ledgerRef {
	if userID, ok := strings.CutPrefix(key, personalKeyPrefix); ok {
		return ledgerRef{userID: userID}
	}
	return ledgerRef{projectID: key}
}

func (l ledgerRef) query() ports.ListQuery {
	return ports.ListQuery{UserID: l.userID}
}
