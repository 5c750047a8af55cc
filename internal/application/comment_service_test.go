package application

import (
	"context"
	"errors"
	"testing"

	"gitlab.com/aventra/api/pulse-content-service/internal/domain"
	"gitlab.com/aventra/api/pulse-content-service/pkg/cachekeys"
)

func newCommentService(comments *fakeCommentRepo, posts *fakePostRepo, cache *fakeCache, pub *fakePublisher) *CommentService {
	return NewCommentService(nopLogger{}, comments, posts, cache, pub)
}

func TestCommentCreateNotifiesPostAuthor(t *testing.T) {
	posts := newFakePostRepo()
	posts.posts["post-1"] = domain.Post{ID: "post-1", Title: "hello", AuthorID: "alice"}
	comments := newFakeCommentRepo()
	cache := newFakeCache()
	pub := &fakePublisher{}
	svc := newCommentService(comments, posts, cache, pub)

	created, err := svc.Create(context.Background(), "post-1", "bob", CreateCommentInput{Content: "nice"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.PostID != "post-1" || created.AuthorID != "bob" {
		t.Fatalf("created = %+v", created)
	}

	// The comment rides inside the cached post snapshot, so the post's
	// key-space must be invalidated.
	keys := cache.keysDeleted()
	if len(keys) != 1 || keys[0] != cachekeys.PostKey("post-1") {
		t.Fatalf("deleted keys = %v", keys)
	}
	patterns := cache.patternsDeleted()
	if len(patterns) != 2 || patterns[0] != cachekeys.PostsPattern() || patterns[1] != cachekeys.MyPostsPattern("alice") {
		t.Fatalf("deleted patterns = %v", patterns)
	}

	if len(pub.events) != 1 {
		t.Fatalf("events = %+v", pub.events)
	}
	ev := pub.events[0]
	if ev.TargetUserID != "alice" {
		t.Fatalf("notification targets %q, want the post author", ev.TargetUserID)
	}
	if ev.Content.Type != domain.NotificationTypeComment || ev.Content.PostID != "post-1" || ev.Content.CommentID != created.ID {
		t.Fatalf("event content = %+v", ev.Content)
	}
}

func TestCommentCreateOnMissingPost(t *testing.T) {
	svc := newCommentService(newFakeCommentRepo(), newFakePostRepo(), newFakeCache(), &fakePublisher{})

	if _, err := svc.Create(context.Background(), "nope", "bob", CreateCommentInput{Content: "x"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCommentUpdateRequiresAuthor(t *testing.T) {
	posts := newFakePostRepo()
	posts.posts["post-1"] = domain.Post{ID: "post-1", AuthorID: "alice"}
	comments := newFakeCommentRepo()
	comments.comments["c1"] = domain.Comment{ID: "c1", Content: "old", AuthorID: "bob", PostID: "post-1"}
	cache := newFakeCache()
	pub := &fakePublisher{}
	svc := newCommentService(comments, posts, cache, pub)

	if _, err := svc.Update(context.Background(), "c1", "mallory", UpdateCommentInput{Content: "x"}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}

	updated, err := svc.Update(context.Background(), "c1", "bob", UpdateCommentInput{Content: "new"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Content != "new" {
		t.Fatalf("updated = %+v", updated)
	}

	keys := cache.keysDeleted()
	if len(keys) != 1 || keys[0] != cachekeys.PostKey("post-1") {
		t.Fatalf("deleted keys = %v", keys)
	}
	// Edits are invalidation-only, nothing to announce.
	if len(pub.events) != 0 {
		t.Fatalf("events = %+v", pub.events)
	}
}

func TestCommentDeleteInvalidatesParentKeySpace(t *testing.T) {
	posts := newFakePostRepo()
	posts.posts["post-1"] = domain.Post{ID: "post-1", AuthorID: "alice"}
	comments := newFakeCommentRepo()
	comments.comments["c1"] = domain.Comment{ID: "c1", AuthorID: "bob", PostID: "post-1"}
	cache := newFakeCache()
	svc := newCommentService(comments, posts, cache, &fakePublisher{})

	if err := svc.Delete(context.Background(), "c1", "bob"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := comments.comments["c1"]; ok {
		t.Fatal("comment not removed")
	}
	patterns := cache.patternsDeleted()
	if len(patterns) != 2 || patterns[1] != cachekeys.MyPostsPattern("alice") {
		t.Fatalf("deleted patterns = %v", patterns)
	}
}

func TestCommentDeleteWhenParentPostGone(t *testing.T) {
	// The parent post was deleted in the meantime; FK cascade normally removes
	// the comments with it, but a stale handler call must still degrade sanely.
	posts := newFakePostRepo()
	comments := newFakeCommentRepo()
	comments.comments["c1"] = domain.Comment{ID: "c1", AuthorID: "bob", PostID: "post-1"}
	cache := newFakeCache()
	svc := newCommentService(comments, posts, cache, &fakePublisher{})

	if err := svc.Delete(context.Background(), "c1", "bob"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	keys := cache.keysDeleted()
	if len(keys) != 1 || keys[0] != cachekeys.PostKey("post-1") {
		t.Fatalf("deleted keys = %v", keys)
	}
	patterns := cache.patternsDeleted()
	if len(patterns) != 1 || patterns[0] != cachekeys.PostsPattern() {
		t.Fatalf("deleted patterns = %v", patterns)
	}
}

func TestCommentFindOneBypassesCache(t *testing.T) {
	comments := newFakeCommentRepo()
	comments.comments["c1"] = domain.Comment{ID: "c1", Content: "hi"}
	cache := newFakeCache()
	cache.getErr = errors.New("cache must not be consulted")
	svc := newCommentService(comments, newFakePostRepo(), cache, &fakePublisher{})

	got, err := svc.FindOne(context.Background(), "c1")
	if err != nil || got.Content != "hi" {
		t.Fatalf("FindOne = %+v, %v", got, err)
	}
	if len(cache.ops) != 0 {
		t.Fatalf("comment reads must not touch the cache: %v", cache.ops)
	}
}
