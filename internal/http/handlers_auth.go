package http

import (
	"errors"
	"net/http"

	"expenses/internal/auth"
	applog "expenses/internal/log"
)

type loginPage struct {
	Username string
	Error    string
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if s.gate.LoggedIn(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login.html", loginPage{})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Malformed form", http.StatusBadRequest)
		return
	}
	logger := applog.FromContext(r.Context()).WithComponent(applog.ComponentAuth)
	username := r.PostForm.Get("username")

	err := s.gate.Login(w, r, username, r.PostForm.Get("password"))
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		logger.WarnContext(r.Context(), "Login rejected",
			applog.FieldOperation, applog.OpLogin,
			applog.FieldUsername, username,
			applog.FieldClientIP, s.detector.ExtractClientIP(r))
		s.render(w, r, http.StatusUnauthorized, "login.html", loginPage{Username: username, Error: "Invalid username or password."})
		return
	case err != nil:
		logger.ErrorContext(r.Context(), "Login failed", applog.FieldOperation, applog.OpLogin, applog.FieldError, err.Error())
		http.Error(w, "Could not start the session.", http.StatusInternalServerError)
		return
	}

	logger.InfoContext(r.Context(), "Login succeeded", applog.FieldOperation, applog.OpLogin, applog.FieldUsername, username)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.gate.Logout(w, r); err != nil {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentAuth).ErrorContext(r.Context(),
			"Logout failed", applog.FieldOperation, applog.OpLogout, applog.FieldError, err.Error())
	}
	http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
}
