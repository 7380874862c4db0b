package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dompet/internal/core"
	"dompet/internal/log"
	"dompet/internal/ports"
)

type ProjectService struct {
	projects ports.ProjectStore
	users    ports.UserStore
	logger   *log.Logger
}

func NewProjectService(projects ports.ProjectStore, users ports.UserStore, logger *log.Logger) *ProjectService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ProjectService{projects: projects, users: users, logger: logger.WithComponent(log.ComponentProject)}
}

// Create makes a project owned by the caller.
func (s *ProjectService) Create(ctx context.Context, sess core.Session, name string) (core.Project, error) {
	if sess.UserID == "" {
		return core.Project{}, core.ErrUnauthorized
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Project{}, core.Invalid(core.ErrEmptyName)
	}
	p, err := s.projects.CreateProject(ctx, core.Project{Name: name, OwnerID: sess.UserID})
	if err != nil {
		return core.Project{}, core.Backend("create project", err)
	}
	s.logger.InfoContext(ctx, "Project created", log.FieldProjectID, p.ID, log.FieldUserID, sess.UserID)
	return p, nil
}

// List returns the projects the caller belongs to, newest first.
func (s *ProjectService) List(ctx context.Context, sess core.Session) ([]core.ProjectDetails, error) {
	if sess.UserID == "" {
		return nil, core.ErrUnauthorized
	}
	out, err := s.projects.ListProjectsForUser(ctx, sess.UserID)
	if err != nil {
		return nil, core.Backend("list projects", err)
	}
	return out, nil
}

// Open returns a project and the caller's role in it.
func (s *ProjectService) Open(ctx context.Context, sess core.Session, projectID string) (core.Project, core.Role, error) {
	m, err := authorize(ctx, s.projects, sess, projectID)
	if err != nil {
		return core.Project{}, "", err
	}
	p, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		return core.Project{}, "", core.Backend("get project", err)
	}
	return p, m.Role, nil
}

// Invite adds the user with the given email as a member. Only the owner may
// invite.
func (s *ProjectService) Invite(ctx context.Context, sess core.Session, projectID, email string) (core.User, error) {
	m, err := authorize(ctx, s.projects, sess, projectID)
	if err != nil {
		return core.User{}, err
	}
	if m.Role != core.RoleOwner {
		return core.User{}, fmt.Errorf("only the owner can invite: %w", core.ErrForbidden)
	}
	email = strings.TrimSpace(email)
	if !strings.Contains(email, "@") {
		return core.User{}, core.Invalid(core.ErrInvalidEmail)
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, fmt.Errorf("user %s: %w", email, core.ErrNotFound)
	}
	if err != nil {
		return core.User{}, core.Backend("find user", err)
	}

	err = s.projects.AddMember(ctx, core.Member{ProjectID: projectID, UserID: u.ID, Role: core.RoleMember})
	if errors.Is(err, core.ErrConflict) {
		return core.User{}, fmt.Errorf("%s is already a member: %w", email, core.ErrConflict)
	}
	if err != nil {
		return core.User{}, core.Backend("add member", err)
	}
	s.logger.InfoContext(ctx, "Member invited", log.FieldProjectID, projectID, log.FieldUserID, u.ID)
	return u, nil
}
