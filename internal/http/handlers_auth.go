package http

import (
	"net/http"

	"dompet/internal/auth"
	"dompet/internal/services"
)

type signUpRequest struct {
	Email           string `json:"email"`
	Username        string `json:"username"`
	FullName        string `json:"full_name"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type passwordRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type authView struct {
	Token string   `json:"token"`
	User  userView `json:"user"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.deps.Auth.SignUp(r.Context(), services.SignUpInput{
		Email:           sanitizeInput(req.Email),
		Username:        sanitizeInput(req.Username),
		FullName:        sanitizeInput(req.FullName),
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	NewHTMXResponse().
		Status(http.StatusCreated).
		TriggerSuccessNotification("Account created").
		JSON(authView{Token: res.Token, User: newUserView(res.User)}).
		Write(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.deps.Auth.Login(r.Context(), sanitizeInput(req.Identifier), req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewHTMXResponse().JSON(authView{Token: res.Token, User: newUserView(res.User)}).Write(w)
}

func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	sess, err := auth.SessionFrom(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req passwordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.deps.Auth.UpdatePassword(r.Context(), sess, req.Password, req.ConfirmPassword); err != nil {
		writeError(w, r, err)
		return
	}
	NewHTMXResponse().
		Status(http.StatusNoContent).
		TriggerSuccessNotification("Password updated").
		Write(w)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	sess, err := auth.SessionFrom(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	u, err := s.deps.Auth.Me(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewHTMXResponse().JSON(newUserView(u)).Write(w)
}
