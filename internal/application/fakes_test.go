package application

import (
	"context"
	"encoding/json"
	"time"

	"github.com/coder/websocket"

	"gitlab.com/aventra/api/pulse-content-service/internal/adapters/config"
	"gitlab.com/aventra/api/pulse-content-service/internal/domain"
)

// nopLogger discards everything; assertions run against the fakes, not logs.
type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, fields ...any) {}
func (nopLogger) Info(ctx context.Context, msg string, fields ...any)  {}
func (nopLogger) Warn(ctx context.Context, msg string, fields ...any)  {}
func (nopLogger) Error(ctx context.Context, msg string, fields ...any) {}
func (nopLogger) Fatal(ctx context.Context, msg string, fields ...any) {}
func (l nopLogger) With(fields ...any) domain.Logger { return l }

// staticConfigProvider serves a fixed config without viper.
type staticConfigProvider struct{ cfg *config.Config }

func (p *staticConfigProvider) Get() *config.Config { return p.cfg }

func testConfigProvider() config.Provider {
	return &staticConfigProvider{cfg: &config.Config{
		Cache: config.CacheConfig{ListTTLSeconds: 60, EntityTTLSeconds: 120},
	}}
}

// opRecord is one cache or publish interaction, in call order.
type opRecord struct {
	op      string // "set", "delete", "delete_pattern", "publish"
	key     string
	pattern string
	ttl     time.Duration
}

// fakeCache records every interaction and serves Get from a seeded map.
type fakeCache struct {
	entries map[string][]byte
	ops     []opRecord

	getErr    error
	setErr    error
	deleteErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]byte{}}
}

func (f *fakeCache) seed(key string, v any) {
	raw, _ := json.Marshal(v)
	f.entries[key] = raw
}

func (f *fakeCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	raw, ok := f.entries[key]
	return raw, ok, nil
}

func (f *fakeCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.ops = append(f.ops, opRecord{op: "set", key: key, ttl: ttl})
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.entries[key] = raw
	return nil
}

func (f *fakeCache) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		f.ops = append(f.ops, opRecord{op: "delete", key: key})
		delete(f.entries, key)
	}
	return f.deleteErr
}

func (f *fakeCache) DeleteByPattern(ctx context.Context, pattern string) error {
	f.ops = append(f.ops, opRecord{op: "delete_pattern", pattern: pattern})
	return f.deleteErr
}

func (f *fakeCache) patternsDeleted() []string {
	var out []string
	for _, rec := range f.ops {
		if rec.op == "delete_pattern" {
			out = append(out, rec.pattern)
		}
	}
	return out
}

func (f *fakeCache) keysDeleted() []string {
	var out []string
	for _, rec := range f.ops {
		if rec.op == "delete" {
			out = append(out, rec.key)
		}
	}
	return out
}

// fakePublisher records published events in order.
type fakePublisher struct {
	events []domain.NotificationEvent
	err    error
}

func (f *fakePublisher) Publish(ctx context.Context, event domain.NotificationEvent) error {
	f.events = append(f.events, event)
	return f.err
}

// fakePostRepo is an in-memory PostRepository with per-call error overrides.
type fakePostRepo struct {
	posts     map[string]domain.Post
	nextID    int
	createErr error
	listCalls int
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: map[string]domain.Post{}}
}

func (f *fakePostRepo) Create(ctx context.Context, post domain.Post) (domain.Post, error) {
	if f.createErr != nil {
		return domain.Post{}, f.createErr
	}
	f.nextID++
	post.ID = "post-" + string(rune('0'+f.nextID))
	post.CreatedAt = time.Now()
	post.UpdatedAt = post.CreatedAt
	f.posts[post.ID] = post
	return post, nil
}

func (f *fakePostRepo) List(ctx context.Context, p domain.Pagination) ([]domain.Post, int64, error) {
	f.listCalls++
	var out []domain.Post
	for _, post := range f.posts {
		out = append(out, post)
	}
	return out, int64(len(out)), nil
}

func (f *fakePostRepo) ListByAuthor(ctx context.Context, authorID string, p domain.Pagination) ([]domain.Post, int64, error) {
	f.listCalls++
	var out []domain.Post
	for _, post := range f.posts {
		if post.AuthorID == authorID {
			out = append(out, post)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakePostRepo) ByID(ctx context.Context, id string) (domain.Post, error) {
	post, ok := f.posts[id]
	if !ok {
		return domain.Post{}, domain.ErrNotFound
	}
	return post, nil
}

func (f *fakePostRepo) Update(ctx context.Context, post domain.Post) (domain.Post, error) {
	if _, ok := f.posts[post.ID]; !ok {
		return domain.Post{}, domain.ErrNotFound
	}
	post.UpdatedAt = time.Now()
	f.posts[post.ID] = post
	return post, nil
}

func (f *fakePostRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.posts[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.posts, id)
	return nil
}

// fakeUserRepo is an in-memory UserRepository.
type fakeUserRepo struct {
	users map[string]domain.User
}

func newFakeUserRepo(users ...domain.User) *fakeUserRepo {
	f := &fakeUserRepo{users: map[string]domain.User{}}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	user.ID = "user-" + user.Username
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) List(ctx context.Context, p domain.Pagination) ([]domain.User, int64, error) {
	var out []domain.User
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, int64(len(out)), nil
}

func (f *fakeUserRepo) ByID(ctx context.Context, id string) (domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) ByEmail(ctx context.Context, email string) (domain.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (f *fakeUserRepo) ByUsername(ctx context.Context, username string) (domain.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (f *fakeUserRepo) Update(ctx context.Context, user domain.User) (domain.User, error) {
	if _, ok := f.users[user.ID]; !ok {
		return domain.User{}, domain.ErrNotFound
	}
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.users[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

// fakeCommentRepo is an in-memory CommentRepository.
type fakeCommentRepo struct {
	comments map[string]domain.Comment
	nextID   int
}

func newFakeCommentRepo() *fakeCommentRepo {
	return &fakeCommentRepo{comments: map[string]domain.Comment{}}
}

func (f *fakeCommentRepo) Create(ctx context.Context, comment domain.Comment) (domain.Comment, error) {
	f.nextID++
	comment.ID = "comment-" + string(rune('0'+f.nextID))
	f.comments[comment.ID] = comment
	return comment, nil
}

func (f *fakeCommentRepo) ByID(ctx context.Context, id string) (domain.Comment, error) {
	c, ok := f.comments[id]
	if !ok {
		return domain.Comment{}, domain.ErrNotFound
	}
	return c, nil
}

func (f *fakeCommentRepo) Update(ctx context.Context, comment domain.Comment) (domain.Comment, error) {
	if _, ok := f.comments[comment.ID]; !ok {
		return domain.Comment{}, domain.ErrNotFound
	}
	f.comments[comment.ID] = comment
	return comment, nil
}

func (f *fakeCommentRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.comments[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.comments, id)
	return nil
}

// fakeConn satisfies domain.ManagedConnection for registry tests.
type fakeConn struct {
	id     string
	writes []any
	closed bool
}

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) WriteJSON(v interface{}) error {
	f.writes = append(f.writes, v)
	return nil
}

func (f *fakeConn) Close(statusCode websocket.StatusCode, reason string) error {
	f.closed = true
	return nil
}

func (f *fakeConn) RemoteAddr() string { return "127.0.0.1:0" }

func (f *fakeConn) Context() context.Context { return context.Background() }
