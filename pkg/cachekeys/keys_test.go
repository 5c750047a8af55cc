package cachekeys

import "testing"

func TestKeyFormats(t *testing.T) {
	cases := []struct {
		name string
		got  string
		want string
	}{
		{"post", PostKey("p1"), "post:p1"},
		{"posts page", PostsPageKey(2, 25), "posts:page=2:limit=25"},
		{"my posts page", MyPostsPageKey("u1", 1, 10), "myposts:user=u1:page=1:limit=10"},
		{"users page", UsersPageKey(3, 5), "users:page=3:limit=5"},
		{"user by id", UserByIDKey("u1"), "user:id:u1"},
		{"user by email", UserByEmailKey("a@b.c"), "user:email:a@b.c"},
		{"user by username", UserByUsernameKey("alice"), "user:username:alice"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("got %q, want %q", tc.got, tc.want)
			}
		})
	}
}

func TestPatternsCoverPageKeys(t *testing.T) {
	if PostsPattern() != "posts:*" {
		t.Errorf("PostsPattern() = %q", PostsPattern())
	}
	if MyPostsPattern("u1") != "myposts:user=u1:*" {
		t.Errorf("MyPostsPattern(u1) = %q", MyPostsPattern("u1"))
	}
	if UsersPattern() != "users:*" {
		t.Errorf("UsersPattern() = %q", UsersPattern())
	}
}

// The single-post key must not be caught by the listing pattern: a listing
// invalidation alone must leave entity snapshots intact.
func TestPostKeyOutsidePostsPattern(t *testing.T) {
	key := PostKey("abc")
	if key[:5] == "posts" {
		t.Fatalf("PostKey(%q) = %q collides with the posts listing pattern", "abc", key)
	}
}
