package application

import (
	"context"
	"fmt"
	"time"

	"gitlab.com/aventra/api/pulse-content-service/internal/adapters/config"
	"gitlab.com/aventra/api/pulse-content-service/internal/domain"
	"gitlab.com/aventra/api/pulse-content-service/pkg/cachekeys"
)

// CreateUserInput carries the caller-supplied fields for a new user.
type CreateUserInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// UpdateUserInput carries a partial update; empty fields are left unchanged.
type UpdateUserInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// UserService implements the user use-cases. The same write-path sequence
// applies as for posts; a user's cache footprint spans three alias keys
// (id, email, username) plus the listing pages, and a profile update must
// invalidate the aliases under their pre-update values.
type UserService struct {
	logger      domain.Logger
	cfgProvider config.Provider
	users       domain.UserRepository
	cache       domain.CacheStore
	publisher   domain.EventPublisher
}

// NewUserService creates a UserService.
func NewUserService(
	logger domain.Logger,
	cfgProvider config.Provider,
	users domain.UserRepository,
	cache domain.CacheStore,
	publisher domain.EventPublisher,
) *UserService {
	if logger == nil || cfgProvider == nil || users == nil || cache == nil || publisher == nil {
		panic("NewUserService: all dependencies are required")
	}
	return &UserService{
		logger:      logger,
		cfgProvider: cfgProvider,
		users:       users,
		cache:       cache,
		publisher:   publisher,
	}
}

func (s *UserService) listTTL() time.Duration {
	return time.Duration(s.cfgProvider.Get().Cache.ListTTLSeconds) * time.Second
}

func (s *UserService) entityTTL() time.Duration {
	return time.Duration(s.cfgProvider.Get().Cache.EntityTTLSeconds) * time.Second
}

// aliasKeys returns every single-entity cache key the given user state maps to.
func aliasKeys(u domain.User) []string {
	return []string{
		cachekeys.UserByIDKey(u.ID),
		cachekeys.UserByEmailKey(u.Email),
		cachekeys.UserByUsernameKey(u.Username),
	}
}

// Create persists a new user and invalidates the listing pages. No
// notification is published: the new user cannot have a live connection yet.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (domain.User, error) {
	user := domain.User{
		Username: input.Username,
		Email:    input.Email,
		Role:     input.Role,
	}
	created, err := s.users.Create(ctx, user)
	if err != nil {
		return domain.User{}, fmt.Errorf("creating user: %w", err)
	}

	invalidate(ctx, s.cache, s.logger, nil, cachekeys.UsersPattern())
	return created, nil
}

// FindAll returns one page of the user listing, read through the cache.
func (s *UserService) FindAll(ctx context.Context, p domain.Pagination) (domain.Page[domain.User], error) {
	p = p.Normalized()
	key := cachekeys.UsersPageKey(p.Page, p.Limit)
	if page, ok := fetchCached[domain.Page[domain.User]](ctx, s.cache, s.logger, key); ok {
		return page, nil
	}

	items, total, err := s.users.List(ctx, p)
	if err != nil {
		return domain.Page[domain.User]{}, fmt.Errorf("listing users: %w", err)
	}
	page := domain.Page[domain.User]{Items: items, Total: total, Page: p.Page, Limit: p.Limit}
	storeCached(ctx, s.cache, s.logger, key, page, s.listTTL())
	return page, nil
}

// FindOne returns a user by id, read through the cache.
func (s *UserService) FindOne(ctx context.Context, userID string) (domain.User, error) {
	return s.findCached(ctx, cachekeys.UserByIDKey(userID), func(ctx context.Context) (domain.User, error) {
		return s.users.ByID(ctx, userID)
	})
}

// FindByEmail returns a user by email, read through the cache.
func (s *UserService) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	return s.findCached(ctx, cachekeys.UserByEmailKey(email), func(ctx context.Context) (domain.User, error) {
		return s.users.ByEmail(ctx, email)
	})
}

// FindByUsername returns a user by username, read through the cache.
func (s *UserService) FindByUsername(ctx context.Context, username string) (domain.User, error) {
	return s.findCached(ctx, cachekeys.UserByUsernameKey(username), func(ctx context.Context) (domain.User, error) {
		return s.users.ByUsername(ctx, username)
	})
}

func (s *UserService) findCached(ctx context.Context, key string, load func(context.Context) (domain.User, error)) (domain.User, error) {
	if user, ok := fetchCached[domain.User](ctx, s.cache, s.logger, key); ok {
		return user, nil
	}
	user, err := load(ctx)
	if err != nil {
		return domain.User{}, err
	}
	storeCached(ctx, s.cache, s.logger, key, user, s.entityTTL())
	return user, nil
}

// Update applies a partial update to the caller's own profile. Alias keys
// are invalidated under the pre-update email/username so a rename cannot
// leave the old alias serving the old snapshot until TTL.
func (s *UserService) Update(ctx context.Context, userID, callerID string, input UpdateUserInput) (domain.User, error) {
	if userID != callerID {
		return domain.User{}, domain.ErrForbidden
	}
	user, err := s.users.ByID(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	staleKeys := aliasKeys(user)
	if input.Username != "" {
		user.Username = input.Username
	}
	if input.Email != "" {
		user.Email = input.Email
	}
	if input.Role != "" {
		user.Role = input.Role
	}

	updated, err := s.users.Update(ctx, user)
	if err != nil {
		return domain.User{}, fmt.Errorf("updating user: %w", err)
	}

	invalidate(ctx, s.cache, s.logger, append(staleKeys, aliasKeys(updated)...), cachekeys.UsersPattern())
	notify(ctx, s.publisher, updated.ID, domain.NotificationContent{
		Type:    domain.NotificationTypeUser,
		Message: "Your profile was updated",
		UserID:  updated.ID,
	})
	return updated, nil
}

// Delete removes a user. No notification is published: the target of the
// event no longer exists.
func (s *UserService) Delete(ctx context.Context, userID, callerID string) error {
	if userID != callerID {
		return domain.ErrForbidden
	}
	user, err := s.users.ByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}

	invalidate(ctx, s.cache, s.logger, aliasKeys(user), cachekeys.UsersPattern())
	return nil
}
