package backend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/skeliit/skeli/backend/data"
)

// AdminPagePath is where the admin comment handlers send the browser back to.
const AdminPagePath = "/admin.jsp"

const (
	defaultCommentListLimit = 100
	maxCommentListLimit     = 1000
)

// parseCommentID parses a base-10 32-bit signed integer.
func parseCommentID(s string) (int32, error) {
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("bad comment_id %q: %w", s, err)
	}
	return int32(n), nil
}

// AdminDeleteCommentHandler deletes the comment named by the comment_id form value. A missing comment_id redirects
// without changing anything. A comment_id that is not an integer is a server error. Deleting a comment that does not
// exist is indistinguishable from deleting one that does. Form pairs that cannot be decoded are skipped.
func AdminDeleteCommentHandler(w http.ResponseWriter, req *http.Request, env *environment) {
	err := req.ParseForm()
	if err != nil {
		env.logger.Warn("AdminDeleteComment: skipping undecodable form values", "error", err)
	}

	values, ok := req.Form["comment_id"]
	if !ok || len(values) == 0 {
		http.Redirect(w, req, AdminPagePath, http.StatusFound)
		return
	}

	commentID, err := parseCommentID(values[0])
	if err != nil {
		env.logger.Error("AdminDeleteComment", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	ctx := req.Context()
	err = withConn(ctx, env.db, func(conn data.Conn) error {
		return data.DeleteComment(ctx, conn, commentID)
	})
	if err != nil {
		env.logger.Error("AdminDeleteComment", "commentID", commentID, "error", fmt.Errorf("delete comment: %w", err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	env.logger.Info("AdminDeleteComment", "commentID", commentID, "userID", env.principal.UserID)
	http.Redirect(w, req, AdminPagePath, http.StatusFound)
}

func AdminListCommentsHandler(w http.ResponseWriter, req *http.Request, env *environment) {
	limit := int32(defaultCommentListLimit)
	if s := req.FormValue("limit"); s != "" {
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil || n < 1 || n > maxCommentListLimit {
			w.WriteHeader(422)
			fmt.Fprintf(w, `"limit" must be between 1 and %d`, maxCommentListLimit)
			return
		}
		limit = int32(n)
	}

	ctx := req.Context()
	var comments []data.Comment
	err := withConn(ctx, env.db, func(conn data.Conn) error {
		var err error
		comments, err = data.SelectComments(ctx, conn, limit)
		return err
	})
	if err != nil {
		env.logger.Error("AdminListComments", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if comments == nil {
		comments = []data.Comment{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(comments)
}
