package domain

import (
	"regexp"
	"time"
)

type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProfileStats replica la vista profile_stats.
type ProfileStats struct {
	Profile
	FollowersCount int64 `json:"followers_count"`
	FollowingCount int64 `json:"following_count"`
	RecipesCount   int64 `json:"recipes_count"`
}

const (
	UsernameMinLen = 3
	UsernameMaxLen = 30
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidateUsername aplica el formato 3-30 caracteres [A-Za-z0-9_].
func ValidateUsername(username string) error {
	if len(username) < UsernameMinLen || len(username) > UsernameMaxLen {
		return ErrInvalidUsername
	}
	if !usernamePattern.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}
