package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"recipeshare/internal/domain"
	"recipeshare/internal/identity"
)

// ErrUnsupported indica que el proveedor configurado no implementa la operacion.
var ErrUnsupported = errors.New("operation not supported by identity provider")

// AccountService orquesta el proveedor de identidad y el perfil asociado.
// El perfil se crea una sola vez, en el primer ingreso confirmado.
type AccountService struct {
	logger   *zap.Logger
	provider identity.Provider
	profiles *ProfileService
}

func NewAccountService(logger *zap.Logger, provider identity.Provider, profiles *ProfileService) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{logger: logger, provider: provider, profiles: profiles}
}

type SignUpInput struct {
	Email    string
	Password string
	Username string
	FullName string
}

// SignInResult devuelve la sesion junto al perfil ya asegurado.
type SignInResult struct {
	Session domain.Session `json:"session"`
	Profile domain.Profile `json:"profile"`
}

// SignUp valida el username y su disponibilidad antes de llamar al proveedor.
func (s *AccountService) SignUp(ctx context.Context, input SignUpInput) (string, error) {
	username := strings.TrimSpace(input.Username)
	if err := domain.ValidateUsername(username); err != nil {
		return "", err
	}
	available, err := s.profiles.UsernameAvailable(ctx, username)
	if err != nil {
		return "", err
	}
	if !available {
		return "", domain.ErrUsernameTaken
	}

	attrs := map[string]string{domain.MetaUsername: username}
	if fullName := strings.TrimSpace(input.FullName); fullName != "" {
		attrs[domain.MetaFullName] = fullName
	}
	userID, err := s.provider.SignUp(ctx, input.Email, input.Password, attrs)
	if err != nil {
		return "", err
	}
	s.logger.Info("account signed up", zap.String("user_id", userID))
	return userID, nil
}

func (s *AccountService) SignIn(ctx context.Context, email, password string) (SignInResult, error) {
	session, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return SignInResult{}, err
	}
	ident, err := s.provider.GetUser(ctx, session.AccessToken)
	if err != nil {
		return SignInResult{}, err
	}
	if ident == nil {
		return SignInResult{}, domain.ErrUnauthenticated
	}
	profile, err := s.EnsureProfile(ctx, *ident)
	if err != nil {
		return SignInResult{}, err
	}
	if session.UserID == "" {
		session.UserID = ident.ID
	}
	return SignInResult{Session: session, Profile: profile}, nil
}

func (s *AccountService) SignOut(ctx context.Context, session domain.Session) error {
	return s.provider.SignOut(ctx, session)
}

func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (domain.Session, error) {
	r, ok := s.provider.(identity.Refresher)
	if !ok {
		return domain.Session{}, ErrUnsupported
	}
	return r.Refresh(ctx, refreshToken)
}

func (s *AccountService) ConfirmEmail(ctx context.Context, email, code string) error {
	c, ok := s.provider.(identity.Confirmer)
	if !ok {
		return ErrUnsupported
	}
	return c.ConfirmEmail(ctx, email, code)
}

func (s *AccountService) ResendConfirmation(ctx context.Context, email string) error {
	c, ok := s.provider.(identity.Confirmer)
	if !ok {
		return ErrUnsupported
	}
	return c.ResendConfirmation(ctx, email)
}

// Authenticate resuelve el access token a una identidad confirmada.
func (s *AccountService) Authenticate(ctx context.Context, accessToken string) (*domain.Identity, error) {
	ident, err := s.provider.GetUser(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if ident == nil {
		return nil, domain.ErrUnauthenticated
	}
	return ident, nil
}

// EnsureProfile crea el perfil desde la metadata del alta si todavia no existe.
// Si el username fue tomado entre el alta y el primer ingreso, se agrega un sufijo del id.
func (s *AccountService) EnsureProfile(ctx context.Context, ident domain.Identity) (domain.Profile, error) {
	profile, err := s.profiles.GetByID(ctx, ident.ID)
	if err == nil {
		return profile, nil
	}
	if !isNotFound(err) {
		return domain.Profile{}, err
	}

	input := CreateProfileInput{
		ID:       ident.ID,
		Username: usernameFor(ident),
		FullName: ident.Metadata[domain.MetaFullName],
	}
	for attempt := 0; ; attempt++ {
		profile, err = s.profiles.Create(ctx, input)
		if err == nil {
			return profile, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return domain.Profile{}, err
		}
		// Otro request pudo crear el mismo perfil.
		if existing, gerr := s.profiles.GetByID(ctx, ident.ID); gerr == nil {
			return existing, nil
		}
		if !errors.Is(err, domain.ErrUsernameTaken) || attempt > 0 {
			return domain.Profile{}, err
		}
		input.Username = withSuffix(input.Username, ident.ID)
		s.logger.Warn("username taken at profile creation", zap.String("user_id", ident.ID), zap.String("username", input.Username))
	}
}

var nonUsernameChars = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// usernameFor toma el username de la metadata o lo deriva del email.
func usernameFor(ident domain.Identity) string {
	if u := strings.TrimSpace(ident.Metadata[domain.MetaUsername]); domain.ValidateUsername(u) == nil {
		return u
	}
	local, _, _ := strings.Cut(ident.Email, "@")
	u := nonUsernameChars.ReplaceAllString(local, "_")
	if len(u) > domain.UsernameMaxLen {
		u = u[:domain.UsernameMaxLen]
	}
	if domain.ValidateUsername(u) == nil {
		return u
	}
	return withSuffix("user", ident.ID)
}

func withSuffix(username, id string) string {
	suffix := "_" + strings.ReplaceAll(id, "-", "")
	if len(suffix) > 7 {
		suffix = suffix[:7]
	}
	if len(username)+len(suffix) > domain.UsernameMaxLen {
		username = username[:domain.UsernameMaxLen-len(suffix)]
	}
	return username + suffix
}
