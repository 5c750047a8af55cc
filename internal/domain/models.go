package domain

import "time"

// User is a registered account. The password hash never leaves the store
// layer; it is excluded from JSON so cached snapshots stay safe to serve.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Post is a user-authored article. Comments are populated on single-post
// lookups only; listings leave the slice nil. Because cached post snapshots
// embed their comments, every comment mutation must invalidate the post's
// cache entry.
type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	AuthorID  string    `json:"authorId"`
	Comments  []Comment `json:"comments,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Comment belongs to a post. ParentID is set for replies to another comment.
type Comment struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	AuthorID  string    `json:"authorId"`
	PostID    string    `json:"postId"`
	ParentID  string    `json:"parentId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Pagination carries page/limit for listing operations.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Normalized returns a copy with out-of-range values replaced by the
// defaults (page 1, limit 10). The normalized values also name the cache
// key for the page, so both paths must agree on them.
func (p Pagination) Normalized() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 10
	}
	return p
}

// Offset converts the page number to a row offset.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Page is one page of a listing together with the total row count.
type Page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}
