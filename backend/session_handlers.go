package backend

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/skeliit/skeli/backend/data"
)

func LoginHandler(w http.ResponseWriter, req *http.Request, env *environment) {
	name := req.PostFormValue("name")
	password := req.PostFormValue("password")

	if name == "" {
		w.WriteHeader(422)
		fmt.Fprintln(w, `Request must include the attribute "name"`)
		return
	}

	if password == "" {
		w.WriteHeader(422)
		fmt.Fprintln(w, `Request must include the attribute "password"`)
		return
	}

	ctx := req.Context()
	var user *data.User
	err := withConn(ctx, env.db, func(conn data.Conn) error {
		var err error
		user, err = data.SelectUserByName(ctx, conn, name)
		return err
	})
	if isNotFound(err) {
		w.WriteHeader(422)
		fmt.Fprintln(w, "Bad user name or password")
		return
	}
	if err != nil {
		env.logger.Error("SelectUserByName failed", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if !IsPassword(user, password) {
		w.WriteHeader(422)
		fmt.Fprintln(w, "Bad user name or password")
		return
	}

	sessionID, err := env.sessions.Create(ctx, principalFromUser(user))
	if err != nil {
		env.logger.Error("create session failed", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     env.sessionConf.CookieName,
		Value:    hex.EncodeToString(sessionID),
		Path:     "/",
		MaxAge:   int(env.sessionConf.Lifetime / time.Second),
		HttpOnly: true,
		Secure:   env.sessionConf.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, req, AdminPagePath, http.StatusSeeOther)
}

func LogoutHandler(w http.ResponseWriter, req *http.Request, env *environment) {
	if env.sessionID != nil {
		err := env.sessions.Delete(req.Context(), env.sessionID)
		if err != nil && !isNotFound(err) {
			env.logger.Error("delete session failed", "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     env.sessionConf.CookieName,
		Value:    "logged out",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   env.sessionConf.Secure,
	})
	http.Redirect(w, req, "/", http.StatusSeeOther)
}
