package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"gitlab.com/aventra/api/pulse-content-service/internal/domain"
)

const postColumns = "id, title, content, author_id, created_at, updated_at"

var _ domain.PostRepository = (*postRepo)(nil)

func scanPost(row pgxRow) (domain.Post, error) {
	var p domain.Post
	err := row.Scan(&p.ID, &p.Title, &p.Content, &p.AuthorID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// Create inserts a post; id and timestamps come from the database.
func (r *postRepo) Create(ctx context.Context, post domain.Post) (domain.Post, error) {
	q := r.qb().Insert(r.table("posts")).
		Columns("title", "content", "author_id").
		Values(post.Title, post.Content, post.AuthorID).
		Suffix("RETURNING " + postColumns)

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return domain.Post{}, fmt.Errorf("building insert: %w", err)
	}
	r.logSQL(ctx, "posts.Create", sqlStr, args)

	created, err := scanPost(r.pool.QueryRow(ctx, sqlStr, args...))
	if err != nil {
		return domain.Post{}, fmt.Errorf("inserting post: %w", err)
	}
	return created, nil
}

// List returns one page of all posts, newest first, with the unpaged total.
func (r *postRepo) List(ctx context.Context, p domain.Pagination) ([]domain.Post, int64, error) {
	return r.listWhere(ctx, "posts.List", nil, p)
}

// ListByAuthor returns one page of a single author's posts, newest first.
func (r *postRepo) ListByAuthor(ctx context.Context, authorID string, p domain.Pagination) ([]domain.Post, int64, error) {
	return r.listWhere(ctx, "posts.ListByAuthor", sq.Eq{"author_id": authorID}, p)
}

func (r *postRepo) listWhere(ctx context.Context, op string, pred any, p domain.Pagination) ([]domain.Post, int64, error) {
	p = p.Normalized()
	q := r.qb().Select("id", "title", "content", "author_id", "created_at", "updated_at").
		Column("COUNT(*) OVER() AS total").
		From(r.table("posts")).
		OrderBy("created_at DESC", "id ASC").
		Limit(uint64(p.Limit)).
		Offset(uint64(p.Offset()))
	if pred != nil {
		q = q.Where(pred)
	}

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("building select: %w", err)
	}
	r.logSQL(ctx, op, sqlStr, args)

	rows, err := r.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing posts: %w", err)
	}
	defer rows.Close()

	var (
		posts []domain.Post
		total int64
	)
	for rows.Next() {
		var post domain.Post
		if err := rows.Scan(&post.ID, &post.Title, &post.Content, &post.AuthorID, &post.CreatedAt, &post.UpdatedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("scanning post row: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating post rows: %w", err)
	}
	return posts, total, nil
}

// ByID returns a single post with its comments embedded, oldest comment
// first, or domain.ErrNotFound.
func (r *postRepo) ByID(ctx context.Context, id string) (domain.Post, error) {
	q := r.qb().Select(postColumns).From(r.table("posts")).Where(sq.Eq{"id": id})

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return domain.Post{}, fmt.Errorf("building select: %w", err)
	}
	r.logSQL(ctx, "posts.ByID", sqlStr, args)

	post, err := scanPost(r.pool.QueryRow(ctx, sqlStr, args...))
	if err != nil {
		return domain.Post{}, mapNotFound(err)
	}

	comments, err := r.commentsForPost(ctx, id)
	if err != nil {
		return domain.Post{}, err
	}
	post.Comments = comments
	return post, nil
}

func (r *postRepo) commentsForPost(ctx context.Context, postID string) ([]domain.Comment, error) {
	q := r.qb().Select("id", "content", "author_id", "post_id", "COALESCE(parent_id::text, '')", "created_at", "updated_at").
		From(r.table("comments")).
		Where(sq.Eq{"post_id": postID}).
		OrderBy("created_at ASC", "id ASC")

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select: %w", err)
	}
	r.logSQL(ctx, "posts.commentsForPost", sqlStr, args)

	rows, err := r.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("listing comments for post: %w", err)
	}
	defer rows.Close()

	var comments []domain.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning comment row: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating comment rows: %w", err)
	}
	return comments, nil
}

// Update rewrites title and content and bumps updated_at.
func (r *postRepo) Update(ctx context.Context, post domain.Post) (domain.Post, error) {
	q := r.qb().Update(r.table("posts")).
		SetMap(map[string]any{
			"title":      post.Title,
			"content":    post.Content,
			"updated_at": sq.Expr("now()"),
		}).
		Where(sq.Eq{"id": post.ID}).
		Suffix("RETURNING " + postColumns)

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return domain.Post{}, fmt.Errorf("building update: %w", err)
	}
	r.logSQL(ctx, "posts.Update", sqlStr, args)

	updated, err := scanPost(r.pool.QueryRow(ctx, sqlStr, args...))
	if err != nil {
		return domain.Post{}, mapNotFound(err)
	}
	return updated, nil
}

// Delete removes the post; the schema cascades to its comments.
func (r *postRepo) Delete(ctx context.Context, id string) error {
	q := r.qb().Delete(r.table("posts")).Where(sq.Eq{"id": id})

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("building delete: %w", err)
	}
	r.logSQL(ctx, "posts.Delete", sqlStr, args)

	tag, err := r.pool.Exec(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("deleting post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
