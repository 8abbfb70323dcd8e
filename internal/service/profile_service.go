package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"recipeshare/internal/domain"
	"recipeshare/internal/repository"
)

const (
	maxFullNameLen = 100
	maxBioLen      = 500
)

// ProfileService aplica las reglas de perfiles: formato y unicidad de username,
// y que solo el dueño modifica su perfil.
type ProfileService struct {
	logger    *zap.Logger
	profiles  repository.ProfileRepository
	follows   repository.FollowRepository
	sanitizer *Sanitizer
	now       func() time.Time
}

func NewProfileService(logger *zap.Logger, profiles repository.ProfileRepository, follows repository.FollowRepository, sanitizer *Sanitizer) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{
		logger:    logger,
		profiles:  profiles,
		follows:   follows,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

type CreateProfileInput struct {
	ID        string
	Username  string
	FullName  string
	Bio       string
	AvatarURL string
}

// ProfileUpdate solo modifica los campos no nil.
type ProfileUpdate struct {
	Username  *string
	FullName  *string
	Bio       *string
	AvatarURL *string
}

// ProfileView es la pagina publica de un perfil vista por un viewer.
type ProfileView struct {
	domain.ProfileStats
	IsFollowing bool `json:"is_following"`
	IsSelf      bool `json:"is_self"`
}

func (s *ProfileService) Create(ctx context.Context, input CreateProfileInput) (domain.Profile, error) {
	if strings.TrimSpace(input.ID) == "" {
		return domain.Profile{}, domain.InvalidInputf("profile id is required")
	}
	username := strings.TrimSpace(input.Username)
	if err := domain.ValidateUsername(username); err != nil {
		return domain.Profile{}, err
	}
	fullName, bio, avatar, err := s.cleanFields(input.FullName, input.Bio, input.AvatarURL)
	if err != nil {
		return domain.Profile{}, err
	}

	now := stamp(s.now())
	profile := domain.Profile{
		ID:        input.ID,
		Username:  username,
		FullName:  fullName,
		Bio:       bio,
		AvatarURL: avatar,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return domain.Profile{}, err
	}
	s.logger.Info("profile created", zap.String("profile_id", profile.ID), zap.String("username", profile.Username))
	return profile, nil
}

// Update falla con ErrForbidden si callerID no es el dueño del perfil.
func (s *ProfileService) Update(ctx context.Context, callerID, profileID string, patch ProfileUpdate) (domain.Profile, error) {
	if callerID == "" || callerID != profileID {
		return domain.Profile{}, domain.ErrForbidden
	}
	profile, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		return domain.Profile{}, err
	}

	if patch.Username != nil {
		username := strings.TrimSpace(*patch.Username)
		if err := domain.ValidateUsername(username); err != nil {
			return domain.Profile{}, err
		}
		profile.Username = username
	}
	fullName, bio, avatar := profile.FullName, profile.Bio, profile.AvatarURL
	if patch.FullName != nil {
		fullName = *patch.FullName
	}
	if patch.Bio != nil {
		bio = *patch.Bio
	}
	if patch.AvatarURL != nil {
		avatar = *patch.AvatarURL
	}
	if profile.FullName, profile.Bio, profile.AvatarURL, err = s.cleanFields(fullName, bio, avatar); err != nil {
		return domain.Profile{}, err
	}

	profile.UpdatedAt = stamp(s.now())
	if profile.UpdatedAt.Before(profile.CreatedAt) {
		profile.UpdatedAt = profile.CreatedAt
	}
	if err := s.profiles.Update(ctx, profile); err != nil {
		return domain.Profile{}, err
	}
	return profile, nil
}

func (s *ProfileService) GetByID(ctx context.Context, id string) (domain.Profile, error) {
	return s.profiles.GetByID(ctx, id)
}

func (s *ProfileService) GetByUsername(ctx context.Context, username string) (domain.Profile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.Profile{}, domain.ErrNotFound
	}
	return s.profiles.GetByUsername(ctx, username)
}

// UsernameAvailable no valida formato; eso lo hace ValidateUsername.
func (s *ProfileService) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	_, err := s.profiles.GetByUsername(ctx, username)
	switch {
	case err == nil:
		return false, nil
	case isNotFound(err):
		return true, nil
	default:
		return false, err
	}
}

// View arma la pagina del perfil con contadores y si el viewer lo sigue.
func (s *ProfileService) View(ctx context.Context, username, viewerID string) (ProfileView, error) {
	profile, err := s.GetByUsername(ctx, username)
	if err != nil {
		return ProfileView{}, err
	}
	stats, err := s.profiles.GetStats(ctx, profile.ID)
	if err != nil {
		return ProfileView{}, err
	}
	view := ProfileView{ProfileStats: stats, IsSelf: viewerID != "" && viewerID == profile.ID}
	if viewerID != "" && !view.IsSelf {
		if view.IsFollowing, err = s.follows.Exists(ctx, viewerID, profile.ID); err != nil {
			return ProfileView{}, err
		}
	}
	return view, nil
}

func (s *ProfileService) cleanFields(fullName, bio, avatar string) (string, string, string, error) {
	fullName = s.sanitizer.Text(fullName)
	bio = s.sanitizer.Text(bio)
	if len([]rune(fullName)) > maxFullNameLen {
		return "", "", "", domain.InvalidInputf("full_name must be at most %d characters", maxFullNameLen)
	}
	if len([]rune(bio)) > maxBioLen {
		return "", "", "", domain.InvalidInputf("bio must be at most %d characters", maxBioLen)
	}
	avatar, err := validateImageURL("avatar_url", avatar)
	if err != nil {
		return "", "", "", err
	}
	return fullName, bio, avatar, nil
}
