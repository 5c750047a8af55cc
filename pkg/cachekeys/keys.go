// Package cachekeys centralizes the cache key-space convention so that the
// read path and the invalidation path can never drift apart. Keys follow the
// `resource:qualifier=value:...` convention; invalidation operates on the
// prefix patterns below because a single mutation can stale an unbounded
// number of cached page/limit permutations.
package cachekeys

import "fmt"

// PostKey generates the cache key for a single post lookup.
func PostKey(postID string) string {
	return fmt.Sprintf("post:%s", postID)
}

// PostsPageKey generates the cache key for one page of the global post listing.
func PostsPageKey(page, limit int) string {
	return fmt.Sprintf("posts:page=%d:limit=%d", page, limit)
}

// MyPostsPageKey generates the cache key for one page of a user's own posts.
func MyPostsPageKey(userID string, page, limit int) string {
	return fmt.Sprintf("myposts:user=%s:page=%d:limit=%d", userID, page, limit)
}

// UsersPageKey generates the cache key for one page of the user listing.
func UsersPageKey(page, limit int) string {
	return fmt.Sprintf("users:page=%d:limit=%d", page, limit)
}

// UserByIDKey generates the cache key for a user looked up by id.
func UserByIDKey(userID string) string {
	return fmt.Sprintf("user:id:%s", userID)
}

// UserByEmailKey generates the cache key for a user looked up by email.
func UserByEmailKey(email string) string {
	return fmt.Sprintf("user:email:%s", email)
}

// UserByUsernameKey generates the cache key for a user looked up by username.
func UserByUsernameKey(username string) string {
	return fmt.Sprintf("user:username:%s", username)
}

// PostsPattern matches every cached page of the global post listing.
func PostsPattern() string {
	return "posts:*"
}

// MyPostsPattern matches every cached page of one user's posts.
func MyPostsPattern(userID string) string {
	return fmt.Sprintf("myposts:user=%s:*", userID)
}

// UsersPattern matches every cached page of the user listing.
func UsersPattern() string {
	return "users:*"
}
