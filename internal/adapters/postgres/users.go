package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"gitlab.com/aventra/api/pulse-content-service/internal/domain"
)

const userColumns = "id, username, email, role, created_at, updated_at"

var _ domain.UserRepository = (*userRepo)(nil)

func scanUser(row pgxRow) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// Create inserts a user; id and timestamps come from the database.
func (r *userRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	role := user.Role
	if role == "" {
		role = "user"
	}
	q := r.qb().Insert(r.table("users")).
		Columns("username", "email", "role").
		Values(user.Username, user.Email, role).
		Suffix("RETURNING " + userColumns)

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return domain.User{}, fmt.Errorf("building insert: %w", err)
	}
	r.logSQL(ctx, "users.Create", sqlStr, args)

	created, err := scanUser(r.pool.QueryRow(ctx, sqlStr, args...))
	if err != nil {
		return domain.User{}, fmt.Errorf("inserting user: %w", err)
	}
	return created, nil
}

// List returns one page of users ordered by creation time, newest first,
// along with the unpaged total.
func (r *userRepo) List(ctx context.Context, p domain.Pagination) ([]domain.User, int64, error) {
	p = p.Normalized()
	q := r.qb().Select("id", "username", "email", "role", "created_at", "updated_at").
		Column("COUNT(*) OVER() AS total").
		From(r.table("users")).
		OrderBy("created_at DESC", "id ASC").
		Limit(uint64(p.Limit)).
		Offset(uint64(p.Offset()))

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("building select: %w", err)
	}
	r.logSQL(ctx, "users.List", sqlStr, args)

	rows, err := r.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var (
		users []domain.User
		total int64
	)
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.CreatedAt, &u.UpdatedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating user rows: %w", err)
	}
	return users, total, nil
}

// ByID returns the user with the given id, or domain.ErrNotFound.
func (r *userRepo) ByID(ctx context.Context, id string) (domain.User, error) {
	return r.userBy(ctx, "users.ByID", sq.Eq{"id": id})
}

// ByEmail returns the user with the given email, or domain.ErrNotFound.
func (r *userRepo) ByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.userBy(ctx, "users.ByEmail", sq.Eq{"email": email})
}

// ByUsername returns the user with the given username, or domain.ErrNotFound.
func (r *userRepo) ByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.userBy(ctx, "users.ByUsername", sq.Eq{"username": username})
}

func (r *userRepo) userBy(ctx context.Context, op string, pred sq.Eq) (domain.User, error) {
	q := r.qb().Select(userColumns).From(r.table("users")).Where(pred)

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return domain.User{}, fmt.Errorf("building select: %w", err)
	}
	r.logSQL(ctx, op, sqlStr, args)

	u, err := scanUser(r.pool.QueryRow(ctx, sqlStr, args...))
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

// Update rewrites the mutable user fields and bumps updated_at.
func (r *userRepo) Update(ctx context.Context, user domain.User) (domain.User, error) {
	q := r.qb().Update(r.table("users")).
		SetMap(map[string]any{
			"username":   user.Username,
			"email":      user.Email,
			"role":       user.Role,
			"updated_at": sq.Expr("now()"),
		}).
		Where(sq.Eq{"id": user.ID}).
		Suffix("RETURNING " + userColumns)

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return domain.User{}, fmt.Errorf("building update: %w", err)
	}
	r.logSQL(ctx, "users.Update", sqlStr, args)

	updated, err := scanUser(r.pool.QueryRow(ctx, sqlStr, args...))
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return updated, nil
}

// Delete removes the user; the schema cascades to their posts and comments.
func (r *userRepo) Delete(ctx context.Context, id string) error {
	q := r.qb().Delete(r.table("users")).Where(sq.Eq{"id": id})

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("building delete: %w", err)
	}
	r.logSQL(ctx, "users.Delete", sqlStr, args)

	tag, err := r.pool.Exec(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
