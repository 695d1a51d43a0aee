package data

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

type Comment struct {
	ID           int32     `json:"id"`
	Author       string    `json:"author"`
	Body         string    `json:"body"`
	CreationTime time.Time `json:"creationTime"`
}

const deleteCommentSQL = `delete from comments where id=$1`

// DeleteComment deletes the comment with id. Deleting a comment that does not exist is not an error.
func DeleteComment(ctx context.Context, db Queryer, id int32) error {
	_, err := db.Exec(ctx, deleteCommentSQL, id)
	return err
}

const selectCommentsSQL = `select id, author, body, creation_time
from comments
order by creation_time desc, id desc
limit $1`

func RowToComment(row pgx.CollectableRow) (Comment, error) {
	var c Comment
	err := row.Scan(&c.ID, &c.Author, &c.Body, &c.CreationTime)
	return c, err
}

func SelectComments(ctx context.Context, db Queryer, limit int32) ([]Comment, error) {
	rows, _ := db.Query(ctx, selectCommentsSQL, limit)
	return pgx.CollectRows(rows, RowToComment)
}
