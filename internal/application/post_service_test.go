package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"gitlab.com/aventra/api/pulse-content-service/internal/domain"
	"gitlab.com/aventra/api/pulse-content-service/pkg/cachekeys"
)

func newPostService(repo *fakePostRepo, cache *fakeCache, pub *fakePublisher) *PostService {
	return NewPostService(nopLogger{}, testConfigProvider(), repo, cache, pub)
}

func TestPostCreateInvalidatesListingsAndNotifies(t *testing.T) {
	repo := newFakePostRepo()
	cache := newFakeCache()
	pub := &fakePublisher{}
	svc := newPostService(repo, cache, pub)

	created, err := svc.Create(context.Background(), "alice", CreatePostInput{Title: "hello", Content: "world"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" || created.AuthorID != "alice" {
		t.Fatalf("created post = %+v", created)
	}

	patterns := cache.patternsDeleted()
	if len(patterns) != 2 || patterns[0] != cachekeys.PostsPattern() || patterns[1] != cachekeys.MyPostsPattern("alice") {
		t.Fatalf("invalidated patterns = %v", patterns)
	}

	if len(pub.events) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.events))
	}
	ev := pub.events[0]
	if ev.TargetUserID != "alice" || ev.Content.Type != domain.NotificationTypePost || ev.Content.PostID != created.ID {
		t.Fatalf("published event = %+v", ev)
	}
}

func TestPostCreateSucceedsWhenCacheAndPublisherFail(t *testing.T) {
	repo := newFakePostRepo()
	cache := newFakeCache()
	cache.deleteErr = errors.New("redis down")
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := newPostService(repo, cache, pub)

	if _, err := svc.Create(context.Background(), "alice", CreatePostInput{Title: "t", Content: "c"}); err != nil {
		t.Fatalf("Create must not fail on best-effort steps: %v", err)
	}
}

func TestPostCreateFailsWhenStoreRejects(t *testing.T) {
	repo := newFakePostRepo()
	repo.createErr = errors.New("insert failed")
	cache := newFakeCache()
	pub := &fakePublisher{}
	svc := newPostService(repo, cache, pub)

	if _, err := svc.Create(context.Background(), "alice", CreatePostInput{Title: "t", Content: "c"}); err == nil {
		t.Fatal("Create must propagate the store error")
	}
	// A rejected persist must not invalidate or publish anything.
	if len(cache.ops) != 0 || len(pub.events) != 0 {
		t.Fatalf("side effects after failed persist: ops=%v events=%v", cache.ops, pub.events)
	}
}

func TestPostFindAllCacheHitSkipsRepository(t *testing.T) {
	repo := newFakePostRepo()
	cache := newFakeCache()
	svc := newPostService(repo, cache, &fakePublisher{})

	cached := domain.Page[domain.Post]{
		Items: []domain.Post{{ID: "post-1", Title: "cached"}},
		Total: 1, Page: 1, Limit: 10,
	}
	cache.seed(cachekeys.PostsPageKey(1, 10), cached)

	page, err := svc.FindAll(context.Background(), domain.Pagination{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if repo.listCalls != 0 {
		t.Fatal("cache hit must not touch the repository")
	}
	if len(page.Items) != 1 || page.Items[0].Title != "cached" {
		t.Fatalf("page = %+v", page)
	}
}

func TestPostFindAllMissPopulatesCacheWithListTTL(t *testing.T) {
	repo := newFakePostRepo()
	repo.posts["post-1"] = domain.Post{ID: "post-1", Title: "fresh", AuthorID: "alice"}
	cache := newFakeCache()
	svc := newPostService(repo, cache, &fakePublisher{})

	// Zero pagination normalizes to page 1 / limit 10.
	page, err := svc.FindAll(context.Background(), domain.Pagination{})
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if repo.listCalls != 1 {
		t.Fatalf("listCalls = %d, want 1", repo.listCalls)
	}
	if page.Page != 1 || page.Limit != 10 || page.Total != 1 {
		t.Fatalf("page envelope = %+v", page)
	}

	var set *opRecord
	for i := range cache.ops {
		if cache.ops[i].op == "set" {
			set = &cache.ops[i]
		}
	}
	if set == nil {
		t.Fatal("miss must repopulate the cache")
	}
	if set.key != cachekeys.PostsPageKey(1, 10) {
		t.Fatalf("cached under %q", set.key)
	}
	if set.ttl != 60*time.Second {
		t.Fatalf("list TTL = %v, want 60s", set.ttl)
	}
}

func TestPostFindAllUndecodableEntryIsAMiss(t *testing.T) {
	repo := newFakePostRepo()
	cache := newFakeCache()
	cache.entries[cachekeys.PostsPageKey(1, 10)] = []byte("{not json")
	svc := newPostService(repo, cache, &fakePublisher{})

	if _, err := svc.FindAll(context.Background(), domain.Pagination{Page: 1, Limit: 10}); err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if repo.listCalls != 1 {
		t.Fatal("undecodable cache entry must fall through to the repository")
	}
}

func TestPostFindAllCacheErrorFallsThrough(t *testing.T) {
	repo := newFakePostRepo()
	cache := newFakeCache()
	cache.getErr = domain.ErrCacheDegraded
	svc := newPostService(repo, cache, &fakePublisher{})

	if _, err := svc.FindAll(context.Background(), domain.Pagination{Page: 1, Limit: 10}); err != nil {
		t.Fatalf("FindAll with degraded cache: %v", err)
	}
	if repo.listCalls != 1 {
		t.Fatal("cache error must be treated as a miss")
	}
}

func TestPostFindOnePopulatesWithEntityTTL(t *testing.T) {
	repo := newFakePostRepo()
	repo.posts["post-1"] = domain.Post{ID: "post-1", Title: "one", AuthorID: "alice"}
	cache := newFakeCache()
	svc := newPostService(repo, cache, &fakePublisher{})

	post, err := svc.FindOne(context.Background(), "post-1")
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if post.ID != "post-1" {
		t.Fatalf("post = %+v", post)
	}
	if len(cache.ops) != 1 || cache.ops[0].op != "set" || cache.ops[0].key != cachekeys.PostKey("post-1") {
		t.Fatalf("cache ops = %v", cache.ops)
	}
	if cache.ops[0].ttl != 120*time.Second {
		t.Fatalf("entity TTL = %v, want 120s", cache.ops[0].ttl)
	}
}

func TestPostFindOneNotFound(t *testing.T) {
	svc := newPostService(newFakePostRepo(), newFakeCache(), &fakePublisher{})

	if _, err := svc.FindOne(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPostUpdateRejectsNonAuthor(t *testing.T) {
	repo := newFakePostRepo()
	repo.posts["post-1"] = domain.Post{ID: "post-1", Title: "t", AuthorID: "alice"}
	cache := newFakeCache()
	pub := &fakePublisher{}
	svc := newPostService(repo, cache, pub)

	if _, err := svc.Update(context.Background(), "post-1", "mallory", UpdatePostInput{Title: "x"}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	if len(cache.ops) != 0 || len(pub.events) != 0 {
		t.Fatal("forbidden update must have no side effects")
	}
}

func TestPostUpdateInvalidatesEntityAndListings(t *testing.T) {
	repo := newFakePostRepo()
	repo.posts["post-1"] = domain.Post{ID: "post-1", Title: "old", Content: "body", AuthorID: "alice"}
	cache := newFakeCache()
	pub := &fakePublisher{}
	svc := newPostService(repo, cache, pub)

	updated, err := svc.Update(context.Background(), "post-1", "alice", UpdatePostInput{Title: "new"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "new" || updated.Content != "body" {
		t.Fatalf("partial update result = %+v", updated)
	}

	keys := cache.keysDeleted()
	if len(keys) != 1 || keys[0] != cachekeys.PostKey("post-1") {
		t.Fatalf("deleted keys = %v", keys)
	}
	patterns := cache.patternsDeleted()
	if len(patterns) != 2 || patterns[0] != cachekeys.PostsPattern() || patterns[1] != cachekeys.MyPostsPattern("alice") {
		t.Fatalf("deleted patterns = %v", patterns)
	}
	if len(pub.events) != 1 || pub.events[0].Content.Type != domain.NotificationTypePostUpdate {
		t.Fatalf("events = %+v", pub.events)
	}
}

func TestPostDelete(t *testing.T) {
	repo := newFakePostRepo()
	repo.posts["post-1"] = domain.Post{ID: "post-1", Title: "t", AuthorID: "alice"}
	cache := newFakeCache()
	pub := &fakePublisher{}
	svc := newPostService(repo, cache, pub)

	if err := svc.Delete(context.Background(), "post-1", "mallory"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	if err := svc.Delete(context.Background(), "post-1", "alice"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := repo.posts["post-1"]; ok {
		t.Fatal("post not removed from the store")
	}
	if len(pub.events) != 1 || pub.events[0].Content.Type != domain.NotificationTypePostDelete {
		t.Fatalf("events = %+v", pub.events)
	}
	if err := svc.Delete(context.Background(), "post-1", "alice"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second delete err = %v, want ErrNotFound", err)
	}
}
