package identity

import (
	"context"

	"clipwave/cache"
	"clipwave/logger"
	"clipwave/repository"
)

// AnonymousName is shown when an uploader has no resolvable identity.
const AnonymousName = "Anonymous"

// Resolver maps an opaque user identifier to a display name. It never
// fails: every resolution problem degrades down the fallback chain to
// AnonymousName.
type Resolver interface {
	DisplayName(ctx context.Context, userID int64) string
}

// userResolver resolves display names through the user repository with a
// short-lived Redis cache in front. Staleness between requests is accepted.
type userResolver struct {
	users repository.UserRepository
	names *cache.NameCache
}

// NewUserResolver creates a Resolver backed by the user repository.
// A nil cache disables caching.
func NewUserResolver(users repository.UserRepository, names *cache.NameCache) Resolver {
	return &userResolver{users: users, names: names}
}

// DisplayName resolves userID to username, falling back to email, falling
// back to AnonymousName.
func (r *userResolver) DisplayName(ctx context.Context, userID int64) string {
	if cached := r.names.Get(ctx, userID); cached != "" {
		return cached
	}

	user, err := r.users.GetUserByID(ctx, userID)
	if err != nil {
		logger.Warn("Failed to resolve uploader identity", logger.Int64("userID", userID), logger.ErrorField(err))
		return AnonymousName
	}
	if user == nil {
		return AnonymousName
	}

	name := user.Username
	if name == "" {
		name = user.Email
	}
	if name == "" {
		return AnonymousName
	}

	r.names.Set(ctx, userID, name)
	return name
}
