package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"recipeshare/internal/domain"
	"recipeshare/internal/email"
	"recipeshare/internal/repository"
)

const (
	confirmationTTL     = 10 * time.Minute
	confirmationResends = 3
)

// ErrConfirmationInvalid cubre codigo incorrecto, vencido o nunca emitido.
var ErrConfirmationInvalid = fmt.Errorf("%w: invalid or expired confirmation code", domain.ErrInvalidInput)

// Local guarda las cuentas en Postgres, confirma el email con un codigo de 6 digitos
// y emite sesiones JWT propias.
type Local struct {
	logger  *zap.Logger
	users   repository.UserRepository
	tokens  *TokenIssuer
	sender  email.Sender
	limiter Limiter
	now     func() time.Time
}

func NewLocal(logger *zap.Logger, users repository.UserRepository, tokens *TokenIssuer, sender email.Sender, limiter Limiter) *Local {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limiter == nil {
		limiter = NewMemoryLimiter(confirmationTTL, confirmationResends)
	}
	return &Local{
		logger:  logger,
		users:   users,
		tokens:  tokens,
		sender:  sender,
		limiter: limiter,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

var (
	_ Provider  = (*Local)(nil)
	_ Refresher = (*Local)(nil)
	_ Confirmer = (*Local)(nil)
)

func (p *Local) SignUp(ctx context.Context, emailAddr, password string, attrs map[string]string) (string, error) {
	emailAddr = normalizeEmail(emailAddr)
	if err := validateCredentials(emailAddr, password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	code, codeHash, err := generateCode()
	if err != nil {
		return "", err
	}
	now := p.now()
	expiresAt := now.Add(confirmationTTL)

	user := domain.User{
		ID:               uuid.NewString(),
		Email:            emailAddr,
		PasswordHash:     string(hash),
		Metadata:         copyAttrs(attrs),
		ConfirmCodeHash:  codeHash,
		ConfirmExpiresAt: &expiresAt,
		CreatedAt:        now,
	}
	if err := p.users.Create(ctx, user); err != nil {
		return "", err
	}

	// La cuenta ya existe: si el envio falla se puede pedir reenvio.
	if err := p.send(ctx, emailAddr, code, expiresAt); err != nil {
		p.logger.Warn("send confirmation code failed", zap.Error(err), zap.String("email", emailAddr))
	}
	return user.ID, nil
}

func (p *Local) SignIn(ctx context.Context, emailAddr, password string) (domain.Session, error) {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || password == "" {
		return domain.Session{}, domain.ErrInvalidCredentials
	}
	user, err := p.users.GetByEmail(ctx, emailAddr)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Session{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return domain.Session{}, err
	}
	if user.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return domain.Session{}, domain.ErrInvalidCredentials
	}
	if user.EmailConfirmedAt == nil {
		return domain.Session{}, domain.ErrEmailNotConfirmed
	}
	return p.tokens.Issue(ctx, user.ID, user.Email)
}

// SignOut revoca el refresh token. El access token vence solo.
func (p *Local) SignOut(ctx context.Context, session domain.Session) error {
	if strings.TrimSpace(session.RefreshToken) == "" {
		return nil
	}
	err := p.tokens.Revoke(ctx, session.RefreshToken)
	if errors.Is(err, ErrTokenInvalid) || errors.Is(err, ErrTokenExpired) {
		return nil
	}
	return err
}

func (p *Local) GetUser(ctx context.Context, accessToken string) (*domain.Identity, error) {
	claims, err := p.tokens.ParseAccess(accessToken)
	if err != nil {
		return nil, nil
	}
	user, err := p.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if user.EmailConfirmedAt == nil {
		return nil, nil
	}
	id := user.Identity()
	return &id, nil
}

func (p *Local) Refresh(ctx context.Context, refreshToken string) (domain.Session, error) {
	claims, err := p.tokens.Consume(ctx, refreshToken)
	if errors.Is(err, ErrTokenInvalid) || errors.Is(err, ErrTokenExpired) {
		return domain.Session{}, domain.ErrUnauthenticated
	}
	if err != nil {
		return domain.Session{}, err
	}
	user, err := p.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Session{}, domain.ErrUnauthenticated
	}
	if err != nil {
		return domain.Session{}, err
	}
	return p.tokens.Issue(ctx, user.ID, user.Email)
}

// ConfirmEmail es idempotente para cuentas ya confirmadas.
func (p *Local) ConfirmEmail(ctx context.Context, emailAddr, code string) error {
	emailAddr = normalizeEmail(emailAddr)
	code = strings.TrimSpace(code)
	if !isValidCode(code) {
		return ErrConfirmationInvalid
	}
	user, err := p.users.GetByEmail(ctx, emailAddr)
	if errors.Is(err, domain.ErrNotFound) {
		return ErrConfirmationInvalid
	}
	if err != nil {
		return err
	}
	if user.EmailConfirmedAt != nil {
		return nil
	}
	if user.ConfirmCodeHash == "" || user.ConfirmExpiresAt == nil {
		return ErrConfirmationInvalid
	}
	if p.now().After(*user.ConfirmExpiresAt) {
		return ErrConfirmationInvalid
	}
	if !verifyCode(code, user.ConfirmCodeHash) {
		return ErrConfirmationInvalid
	}
	return p.users.ConfirmEmail(ctx, user.ID, p.now())
}

// ResendConfirmation no revela si el email existe.
func (p *Local) ResendConfirmation(ctx context.Context, emailAddr string) error {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return domain.ErrInvalidEmail
	}
	if !p.limiter.Allow(ctx, emailAddr) {
		return domain.ErrRateLimited
	}
	user, err := p.users.GetByEmail(ctx, emailAddr)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if user.EmailConfirmedAt != nil {
		return nil
	}

	code, codeHash, err := generateCode()
	if err != nil {
		return err
	}
	expiresAt := p.now().Add(confirmationTTL)
	if err := p.users.UpdateConfirmation(ctx, user.ID, codeHash, expiresAt); err != nil {
		return err
	}
	if err := p.send(ctx, emailAddr, code, expiresAt); err != nil {
		p.logger.Warn("resend confirmation code failed", zap.Error(err), zap.String("email", emailAddr))
		return domain.Unavailable("send confirmation", err)
	}
	return nil
}

func (p *Local) send(ctx context.Context, to, code string, expiresAt time.Time) error {
	if p.sender == nil {
		return errors.New("email sender not configured")
	}
	return p.sender.SendConfirmationCode(ctx, to, code, expiresAt)
}

func copyAttrs(attrs map[string]string) map[string]string {
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}

// generateCode devuelve el codigo en claro y "salt:sha256(salt:code)".
func generateCode() (string, string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", "", err
	}
	code := fmt.Sprintf("%06d", n.Int64())

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", "", err
	}
	saltStr := base64.StdEncoding.EncodeToString(salt)
	return code, saltStr + ":" + hashCode(saltStr, code), nil
}

func hashCode(salt, code string) string {
	sum := sha256.Sum256([]byte(salt + ":" + code))
	return base64.StdEncoding.EncodeToString(sum[:])
}

func verifyCode(code, stored string) bool {
	salt, expected, ok := strings.Cut(stored, ":")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(hashCode(salt, code)), []byte(expected)) == 1
}

func isValidCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
