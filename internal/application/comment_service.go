package application

import (
	"context"
	"fmt"

	"gitlab.com/aventra/api/pulse-content-service/internal/domain"
	"gitlab.com/aventra/api/pulse-content-service/pkg/cachekeys"
)

// CreateCommentInput carries the caller-supplied fields for a new comment.
// ParentID is optional and names the comment being replied to.
type CreateCommentInput struct {
	Content  string `json:"content"`
	ParentID string `json:"parentId"`
}

// UpdateCommentInput carries a partial update; an empty Content is left
// unchanged.
type UpdateCommentInput struct {
	Content string `json:"content"`
}

// CommentService implements the comment use-cases. Comments are not cached
// on their own, but they ride inside cached single-post snapshots, so every
// comment mutation invalidates the parent post's key-space.
type CommentService struct {
	logger    domain.Logger
	comments  domain.CommentRepository
	posts     domain.PostRepository
	cache     domain.CacheStore
	publisher domain.EventPublisher
}

// NewCommentService creates a CommentService.
func NewCommentService(
	logger domain.Logger,
	comments domain.CommentRepository,
	posts domain.PostRepository,
	cache domain.CacheStore,
	publisher domain.EventPublisher,
) *CommentService {
	if logger == nil || comments == nil || posts == nil || cache == nil || publisher == nil {
		panic("NewCommentService: all dependencies are required")
	}
	return &CommentService{
		logger:    logger,
		comments:  comments,
		posts:     posts,
		cache:     cache,
		publisher: publisher,
	}
}

// Create persists a comment on postID authored by authorID, invalidates the
// parent post's key-space and notifies the post's author.
func (s *CommentService) Create(ctx context.Context, postID, authorID string, input CreateCommentInput) (domain.Comment, error) {
	post, err := s.posts.ByID(ctx, postID)
	if err != nil {
		return domain.Comment{}, err
	}

	comment := domain.Comment{
		Content:  input.Content,
		AuthorID: authorID,
		PostID:   postID,
		ParentID: input.ParentID,
	}
	created, err := s.comments.Create(ctx, comment)
	if err != nil {
		return domain.Comment{}, fmt.Errorf("creating comment: %w", err)
	}

	s.invalidatePost(ctx, post)
	notify(ctx, s.publisher, post.AuthorID, domain.NotificationContent{
		Type:      domain.NotificationTypeComment,
		Message:   fmt.Sprintf("New comment on your post: %s", post.Title),
		PostID:    post.ID,
		CommentID: created.ID,
	})
	return created, nil
}

// FindOne returns a single comment. Comments bypass the cache: they are only
// ever cached as part of their parent post's snapshot.
func (s *CommentService) FindOne(ctx context.Context, commentID string) (domain.Comment, error) {
	return s.comments.ByID(ctx, commentID)
}

// Update applies a partial update to a comment owned by userID. Returns
// domain.ErrForbidden when the caller is not the author.
func (s *CommentService) Update(ctx context.Context, commentID, userID string, input UpdateCommentInput) (domain.Comment, error) {
	comment, err := s.comments.ByID(ctx, commentID)
	if err != nil {
		return domain.Comment{}, err
	}
	if comment.AuthorID != userID {
		return domain.Comment{}, domain.ErrForbidden
	}
	if input.Content != "" {
		comment.Content = input.Content
	}

	updated, err := s.comments.Update(ctx, comment)
	if err != nil {
		return domain.Comment{}, fmt.Errorf("updating comment: %w", err)
	}

	s.invalidateByPostID(ctx, comment.PostID)
	return updated, nil
}

// Delete removes a comment owned by userID. Returns domain.ErrForbidden when
// the caller is not the author.
func (s *CommentService) Delete(ctx context.Context, commentID, userID string) error {
	comment, err := s.comments.ByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.AuthorID != userID {
		return domain.ErrForbidden
	}
	if err := s.comments.Delete(ctx, commentID); err != nil {
		return fmt.Errorf("deleting comment: %w", err)
	}

	s.invalidateByPostID(ctx, comment.PostID)
	return nil
}

// invalidateByPostID resolves the parent post so the author's listing pages
// can be invalidated along with the post snapshot. A post that has since been
// deleted leaves nothing to invalidate beyond the global listing.
func (s *CommentService) invalidateByPostID(ctx context.Context, postID string) {
	post, err := s.posts.ByID(ctx, postID)
	if err != nil {
		invalidate(ctx, s.cache, s.logger, []string{cachekeys.PostKey(postID)}, cachekeys.PostsPattern())
		return
	}
	s.invalidatePost(ctx, post)
}

func (s *CommentService) invalidatePost(ctx context.Context, post domain.Post) {
	invalidate(ctx, s.cache, s.logger,
		[]string{cachekeys.PostKey(post.ID)},
		cachekeys.PostsPattern(), cachekeys.MyPostsPattern(post.AuthorID))
}
