package application

import (
	"context"
	"fmt"
	"time"

	"gitlab.com/aventra/api/pulse-content-service/internal/adapters/config"
	"gitlab.com/aventra/api/pulse-content-service/internal/domain"
	"gitlab.com/aventra/api/pulse-content-service/pkg/cachekeys"
)

// CreatePostInput carries the caller-supplied fields for a new post.
type CreatePostInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// UpdatePostInput carries a partial update; empty fields are left unchanged.
type UpdatePostInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// PostService implements the post use-cases. Reads go through the cache;
// mutations run the fixed write-path sequence: persist to the store of
// record, invalidate the stale key-space, publish a notification event to
// the post's author. Steps two and three are best-effort and can never fail
// a mutation that the store has already accepted.
type PostService struct {
	logger      domain.Logger
	cfgProvider config.Provider
	posts       domain.PostRepository
	cache       domain.CacheStore
	publisher   domain.EventPublisher
}

// NewPostService creates a PostService.
func NewPostService(
	logger domain.Logger,
	cfgProvider config.Provider,
	posts domain.PostRepository,
	cache domain.CacheStore,
	publisher domain.EventPublisher,
) *PostService {
	if logger == nil || cfgProvider == nil || posts == nil || cache == nil || publisher == nil {
		panic("NewPostService: all dependencies are required")
	}
	return &PostService{
		logger:      logger,
		cfgProvider: cfgProvider,
		posts:       posts,
		cache:       cache,
		publisher:   publisher,
	}
}

func (s *PostService) listTTL() time.Duration {
	return time.Duration(s.cfgProvider.Get().Cache.ListTTLSeconds) * time.Second
}

func (s *PostService) entityTTL() time.Duration {
	return time.Duration(s.cfgProvider.Get().Cache.EntityTTLSeconds) * time.Second
}

// Create persists a new post owned by authorID, then invalidates the global
// and per-author listings and notifies the author.
func (s *PostService) Create(ctx context.Context, authorID string, input CreatePostInput) (domain.Post, error) {
	post := domain.Post{
		Title:    input.Title,
		Content:  input.Content,
		AuthorID: authorID,
	}
	created, err := s.posts.Create(ctx, post)
	if err != nil {
		return domain.Post{}, fmt.Errorf("creating post: %w", err)
	}

	invalidate(ctx, s.cache, s.logger, nil, cachekeys.PostsPattern(), cachekeys.MyPostsPattern(authorID))
	notify(ctx, s.publisher, authorID, domain.NotificationContent{
		Type:    domain.NotificationTypePost,
		Message: fmt.Sprintf("New post created: %s", created.Title),
		PostID:  created.ID,
	})
	return created, nil
}

// FindAll returns one page of the global post listing, read through the cache.
func (s *PostService) FindAll(ctx context.Context, p domain.Pagination) (domain.Page[domain.Post], error) {
	p = p.Normalized()
	key := cachekeys.PostsPageKey(p.Page, p.Limit)
	if page, ok := fetchCached[domain.Page[domain.Post]](ctx, s.cache, s.logger, key); ok {
		return page, nil
	}

	items, total, err := s.posts.List(ctx, p)
	if err != nil {
		return domain.Page[domain.Post]{}, fmt.Errorf("listing posts: %w", err)
	}
	page := domain.Page[domain.Post]{Items: items, Total: total, Page: p.Page, Limit: p.Limit}
	storeCached(ctx, s.cache, s.logger, key, page, s.listTTL())
	return page, nil
}

// FindMine returns one page of the caller's own posts, read through the cache.
func (s *PostService) FindMine(ctx context.Context, userID string, p domain.Pagination) (domain.Page[domain.Post], error) {
	p = p.Normalized()
	key := cachekeys.MyPostsPageKey(userID, p.Page, p.Limit)
	if page, ok := fetchCached[domain.Page[domain.Post]](ctx, s.cache, s.logger, key); ok {
		return page, nil
	}

	items, total, err := s.posts.ListByAuthor(ctx, userID, p)
	if err != nil {
		return domain.Page[domain.Post]{}, fmt.Errorf("listing posts by author: %w", err)
	}
	page := domain.Page[domain.Post]{Items: items, Total: total, Page: p.Page, Limit: p.Limit}
	storeCached(ctx, s.cache, s.logger, key, page, s.listTTL())
	return page, nil
}

// FindOne returns a single post with its comments embedded, read through the
// cache. Returns domain.ErrNotFound when no such post exists.
func (s *PostService) FindOne(ctx context.Context, postID string) (domain.Post, error) {
	key := cachekeys.PostKey(postID)
	if post, ok := fetchCached[domain.Post](ctx, s.cache, s.logger, key); ok {
		return post, nil
	}

	post, err := s.posts.ByID(ctx, postID)
	if err != nil {
		return domain.Post{}, err
	}
	storeCached(ctx, s.cache, s.logger, key, post, s.entityTTL())
	return post, nil
}

// Update applies a partial update to a post owned by userID. Returns
// domain.ErrForbidden when the caller is not the author.
func (s *PostService) Update(ctx context.Context, postID, userID string, input UpdatePostInput) (domain.Post, error) {
	post, err := s.posts.ByID(ctx, postID)
	if err != nil {
		return domain.Post{}, err
	}
	if post.AuthorID != userID {
		return domain.Post{}, domain.ErrForbidden
	}
	if input.Title != "" {
		post.Title = input.Title
	}
	if input.Content != "" {
		post.Content = input.Content
	}

	updated, err := s.posts.Update(ctx, post)
	if err != nil {
		return domain.Post{}, fmt.Errorf("updating post: %w", err)
	}

	invalidate(ctx, s.cache, s.logger,
		[]string{cachekeys.PostKey(postID)},
		cachekeys.PostsPattern(), cachekeys.MyPostsPattern(post.AuthorID))
	notify(ctx, s.publisher, post.AuthorID, domain.NotificationContent{
		Type:    domain.NotificationTypePostUpdate,
		Message: fmt.Sprintf("Post updated: %s", updated.Title),
		PostID:  updated.ID,
	})
	return updated, nil
}

// Delete removes a post owned by userID. Returns domain.ErrForbidden when
// the caller is not the author.
func (s *PostService) Delete(ctx context.Context, postID, userID string) error {
	post, err := s.posts.ByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != userID {
		return domain.ErrForbidden
	}
	if err := s.posts.Delete(ctx, postID); err != nil {
		return fmt.Errorf("deleting post: %w", err)
	}

	invalidate(ctx, s.cache, s.logger,
		[]string{cachekeys.PostKey(postID)},
		cachekeys.PostsPattern(), cachekeys.MyPostsPattern(post.AuthorID))
	notify(ctx, s.publisher, post.AuthorID, domain.NotificationContent{
		Type:    domain.NotificationTypePostDelete,
		Message: fmt.Sprintf("Post deleted: %s", post.Title),
		PostID:  post.ID,
	})
	return nil
}
