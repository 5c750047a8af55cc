package domain

import "context"

// UserRepository is the store-of-record surface for users. Implementations
// return ErrNotFound for absent rows; the store is treated as source of truth.
type UserRepository interface {
	Create(ctx context.Context, user User) (User, error)
	List(ctx context.Context, p Pagination) ([]User, int64, error)
	ByID(ctx context.Context, id string) (User, error)
	ByEmail(ctx context.Context, email string) (User, error)
	ByUsername(ctx context.Context, username string) (User, error)
	Update(ctx context.Context, user User) (User, error)
	Delete(ctx context.Context, id string) error
}

// PostRepository is the store-of-record surface for posts.
type PostRepository interface {
	Create(ctx context.Context, post Post) (Post, error)
	List(ctx context.Context, p Pagination) ([]Post, int64, error)
	ListByAuthor(ctx context.Context, authorID string, p Pagination) ([]Post, int64, error)
	ByID(ctx context.Context, id string) (Post, error)
	Update(ctx context.Context, post Post) (Post, error)
	Delete(ctx context.Context, id string) error
}

// CommentRepository is the store-of-record surface for comments.
type CommentRepository interface {
	Create(ctx context.Context, comment Comment) (Comment, error)
	ByID(ctx context.Context, id string) (Comment, error)
	Update(ctx context.Context, comment Comment) (Comment, error)
	Delete(ctx context.Context, id string) error
}
