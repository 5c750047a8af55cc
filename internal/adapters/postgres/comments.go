package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"gitlab.com/aventra/api/pulse-content-service/internal/domain"
)

// parent_id is nullable; it is surfaced as an empty string on the way out
// and stored as NULL when empty on the way in.
const commentColumns = "id, content, author_id, post_id, COALESCE(parent_id::text, ''), created_at, updated_at"

var _ domain.CommentRepository = (*commentRepo)(nil)

func scanComment(row pgxRow) (domain.Comment, error) {
	var c domain.Comment
	err := row.Scan(&c.ID, &c.Content, &c.AuthorID, &c.PostID, &c.ParentID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func nullableID(id string) any {
	if id == "" {
		return nil
	}
	return id
}

// Create inserts a comment; id and timestamps come from the database.
func (r *commentRepo) Create(ctx context.Context, comment domain.Comment) (domain.Comment, error) {
	q := r.qb().Insert(r.table("comments")).
		Columns("content", "author_id", "post_id", "parent_id").
		Values(comment.Content, comment.AuthorID, comment.PostID, nullableID(comment.ParentID)).
		Suffix("RETURNING " + commentColumns)

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return domain.Comment{}, fmt.Errorf("building insert: %w", err)
	}
	r.logSQL(ctx, "comments.Create", sqlStr, args)

	created, err := scanComment(r.pool.QueryRow(ctx, sqlStr, args...))
	if err != nil {
		return domain.Comment{}, fmt.Errorf("inserting comment: %w", err)
	}
	return created, nil
}

// ByID returns the comment with the given id, or domain.ErrNotFound.
func (r *commentRepo) ByID(ctx context.Context, id string) (domain.Comment, error) {
	q := r.qb().Select(commentColumns).From(r.table("comments")).Where(sq.Eq{"id": id})

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return domain.Comment{}, fmt.Errorf("building select: %w", err)
	}
	r.logSQL(ctx, "comments.ByID", sqlStr, args)

	c, err := scanComment(r.pool.QueryRow(ctx, sqlStr, args...))
	if err != nil {
		return domain.Comment{}, mapNotFound(err)
	}
	return c, nil
}

// Update rewrites the comment body and bumps updated_at.
func (r *commentRepo) Update(ctx context.Context, comment domain.Comment) (domain.Comment, error) {
	q := r.qb().Update(r.table("comments")).
		SetMap(map[string]any{
			"content":    comment.Content,
			"updated_at": sq.Expr("now()"),
		}).
		Where(sq.Eq{"id": comment.ID}).
		Suffix("RETURNING " + commentColumns)

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return domain.Comment{}, fmt.Errorf("building update: %w", err)
	}
	r.logSQL(ctx, "comments.Update", sqlStr, args)

	updated, err := scanComment(r.pool.QueryRow(ctx, sqlStr, args...))
	if err != nil {
		return domain.Comment{}, mapNotFound(err)
	}
	return updated, nil
}

// Delete removes the comment; the schema cascades to its replies.
func (r *commentRepo) Delete(ctx context.Context, id string) error {
	q := r.qb().Delete(r.table("comments")).Where(sq.Eq{"id": id})

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("building delete: %w", err)
	}
	r.logSQL(ctx, "comments.Delete", sqlStr, args)

	tag, err := r.pool.Exec(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("deleting comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
