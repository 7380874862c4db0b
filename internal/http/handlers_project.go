package http

import (
	"net/http"

	"dompet/internal/auth"
	"dompet/internal/core"
)

type createProjectRequest struct {
	Name string `json:"name"`
}

type inviteRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	sess, err := auth.SessionFrom(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	projects, err := s.deps.Projects.List(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]projectView, 0, len(projects))
	for _, p := range projects {
		out = append(out, newProjectDetailsView(p))
	}
	NewHTMXResponse().JSON(map[string]any{"projects": out}).Write(w)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	sess, err := auth.SessionFrom(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req createProjectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	p, err := s.deps.Projects.Create(r.Context(), sess, sanitizeInput(req.Name))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewHTMXResponse().
		Status(http.StatusCreated).
		TriggerSuccessNotification("Project created").
		JSON(newProjectView(p, core.RoleOwner)).
		Write(w)
}

func (s *Server) handleOpenProject(w http.ResponseWriter, r *http.Request) {
	sess, err := auth.SessionFrom(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, role, err := s.deps.Projects.Open(r.Context(), sess, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewHTMXResponse().JSON(newProjectView(p, role)).Write(w)
}

func (s *Server) handleInvite(w http.ResponseWriter, r *http.Request) {
	sess, err := auth.SessionFrom(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req inviteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	u, err := s.deps.Projects.Invite(r.Context(), sess, r.PathValue("id"), sanitizeInput(req.Email))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewHTMXResponse().
		Status(http.StatusCreated).
		TriggerSuccessNotification(u.DisplayName() + " joined the project").
		JSON(newUserView(u)).
		Write(w)
}
