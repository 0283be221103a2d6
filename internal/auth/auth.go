// Package auth gates the application behind a single credential pair and a
// signed session cookie.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
)

const (
	// SessionName is the cookie name.
	SessionName = "expenses_session"
	// FlagLoggedIn is the session key set after a successful login.
	FlagLoggedIn = "logged_in"

	LoginPath = "/login"
)

// ErrInvalidCredentials is returned by Login when the pair does not match.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Config holds the credential pair and the cookie settings.
type Config struct {
	Username string
	Password string
	// Secret signs the cookie. When empty a random key is generated, so
	// sessions do not survive a restart.
	Secret string
	// Disabled lets every request through.
	Disabled bool
	// Secure sets the cookie's Secure attribute.
	Secure bool
	// MaxAge is the cookie lifetime in seconds; zero means one week.
	MaxAge int
}

type Gate struct {
	store    *sessions.CookieStore
	username []byte
	password []byte
	disabled bool
}

// New builds a gate. The credentials must be set unless the gate is disabled.
func New(cfg Config) (*Gate, error) {
	if !cfg.Disabled && (cfg.Username == "" || cfg.Password == "") {
		return nil, errors.New("auth: username and password are required")
	}

	secret := []byte(cfg.Secret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("auth: generate session secret: %w", err)
		}
		if !cfg.Disabled {
			slog.Warn("SESSION_SECRET not set, using a random key; sessions end on restart")
		}
	}

	maxAge := cfg.MaxAge
	if maxAge == 0 {
		maxAge = 7 * 24 * 60 * 60
	}
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	return &Gate{
		store:    store,
		username: []byte(cfg.Username),
		password: []byte(cfg.Password),
		disabled: cfg.Disabled,
	}, nil
}

// Disabled reports whether the gate lets everything through.
func (g *Gate) Disabled() bool { return g.disabled }

// CheckCredentials compares both values in constant time.
func (g *Gate) CheckCredentials(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), g.username) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), g.password) == 1
	return userOK && passOK
}

// LoggedIn reports whether the request carries a valid session with the flag set.
func (g *Gate) LoggedIn(r *http.Request) bool {
	if g.disabled {
		return true
	}
	session, err := g.store.Get(r, SessionName)
	if err != nil {
		return false
	}
	v, _ := session.Values[FlagLoggedIn].(bool)
	return v
}

// Login checks the credentials and sets the flag on success.
func (g *Gate) Login(w http.ResponseWriter, r *http.Request, username, password string) error {
	if !g.CheckCredentials(username, password) {
		return ErrInvalidCredentials
	}
	// A tampered or stale cookie yields a fresh session alongside the error.
	session, _ := g.store.Get(r, SessionName)
	session.Values[FlagLoggedIn] = true
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Logout clears the flag and expires the cookie.
func (g *Gate) Logout(w http.ResponseWriter, r *http.Request) error {
	session, _ := g.store.Get(r, SessionName)
	delete(session.Values, FlagLoggedIn)
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Public reports whether path is reachable without a session.
func Public(path string) bool {
	switch path {
	case LoginPath, "/healthz", "/readyz":
		return true
	}
	return strings.HasPrefix(path, "/static/")
}

// RequireLogin redirects anonymous page requests to the login form and
// answers anonymous API requests with 401.
func (g *Gate) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.disabled || Public(r.URL.Path) || g.LoggedIn(r) {
			next.ServeHTTP(w, r)
			return
		}

		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Content-Type", "application/problem+json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"title":  http.StatusText(http.StatusUnauthorized),
				"status": http.StatusUnauthorized,
				"detail": "login required",
			})
			return
		}

		http.Redirect(w, r, LoginPath, http.StatusSeeOther)
	})
}
