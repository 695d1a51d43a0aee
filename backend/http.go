package backend

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/skeliit/skeli/backend/data"
	log "gopkg.in/inconshreveable/log15.v2"
)

type EnvHandlerFunc func(w http.ResponseWriter, req *http.Request, env *environment)

type environment struct {
	principal   *Principal
	sessionID   []byte
	db          ConnProvider
	sessions    SessionStore
	sessionConf SessionConfig
	logger      log.Logger
}

type appServer struct {
	db          ConnProvider
	sessions    SessionStore
	sessionConf SessionConfig
	logger      log.Logger
}

// EnvHandler resolves the caller's principal from the session and passes it to f in env. Session lookup failures other
// than an unknown session are logged and the caller is treated as anonymous.
func (s *appServer) EnvHandler(f EnvHandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		env := &environment{
			db:          s.db,
			sessions:    s.sessions,
			sessionConf: s.sessionConf,
			logger:      s.logger,
		}

		env.sessionID = getSessionID(req, s.sessionConf.CookieName)
		if env.sessionID != nil {
			principal, err := s.sessions.Principal(req.Context(), env.sessionID)
			if err == nil {
				env.principal = principal
			} else if !isNotFound(err) {
				s.logger.Error("session lookup failed", "error", err)
			}
		}

		f(w, req, env)
	})
}

// RoleHandler responds 403 Forbidden unless the principal holds role.
func RoleHandler(role Role, f EnvHandlerFunc) EnvHandlerFunc {
	return EnvHandlerFunc(func(w http.ResponseWriter, req *http.Request, env *environment) {
		if !env.principal.HasRole(role) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		f(w, req, env)
	})
}

// getSessionID returns the session id from the cookie, or from the X-Authentication header when the cookie is missing
// or not a valid id.
func getSessionID(req *http.Request, cookieName string) []byte {
	if cookie, err := req.Cookie(cookieName); err == nil {
		if sessionID := decodeSessionID(cookie.Value); sessionID != nil {
			return sessionID
		}
	}

	return decodeSessionID(req.Header.Get("X-Authentication"))
}

func decodeSessionID(token string) []byte {
	sessionID, err := hex.DecodeString(token)
	if err != nil || len(sessionID) == 0 {
		return nil
	}

	return sessionID
}

// NewAppServer returns the application's HTTP handler. When config.StaticURL is set, requests not matched by an
// application route are reverse proxied to it.
func NewAppServer(config HTTPConfig, sessionConf SessionConfig, db ConnProvider, sessions SessionStore, logger log.Logger) (http.Handler, error) {
	s := &appServer{
		db:          db,
		sessions:    sessions,
		sessionConf: sessionConf,
		logger:      logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Method(http.MethodPost, "/login", s.EnvHandler(LoginHandler))
	r.Method(http.MethodPost, "/logout", s.EnvHandler(LogoutHandler))

	r.Method(http.MethodPost, "/admin/comment", s.EnvHandler(RoleHandler(RoleAdmin, AdminDeleteCommentHandler)))
	r.Method(http.MethodGet, "/admin/comments", s.EnvHandler(RoleHandler(RoleAdmin, AdminListCommentsHandler)))

	if config.StaticURL != "" {
		staticURL, err := url.Parse(config.StaticURL)
		if err != nil {
			return nil, fmt.Errorf("bad static-url: %w", err)
		}
		r.Handle("/*", httputil.NewSingleHostReverseProxy(staticURL))
	}

	return r, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, data.ErrNotFound)
}
