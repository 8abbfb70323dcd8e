package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"recipeshare/internal/domain"
	"recipeshare/internal/repository/memrepo"
)

type mockSender struct {
	calls       int
	lastTo      string
	lastCode    string
	lastExpires time.Time
	err         error
}

func (m *mockSender) SendConfirmationCode(_ context.Context, to, code string, expiresAt time.Time) error {
	m.calls++
	m.lastTo = to
	m.lastCode = code
	m.lastExpires = expiresAt
	return m.err
}

type mockLimiter struct{ allow bool }

func (m mockLimiter) Allow(context.Context, string) bool { return m.allow }

func newLocal(t *testing.T, sender *mockSender, limiter Limiter) (*Local, *memrepo.Store) {
	t.Helper()
	store := memrepo.New()
	tokens := NewTokenIssuer("secret", 15*time.Minute, time.Hour, NewMemoryRefreshTokenStore())
	return NewLocal(zap.NewNop(), store.Users(), tokens, sender, limiter), store
}

func TestLocal_SignUpStoresUnconfirmedUserAndMailsCode(t *testing.T) {
	sender := &mockSender{}
	p, store := newLocal(t, sender, nil)
	ctx := context.Background()

	start := time.Now().UTC()
	id, err := p.SignUp(ctx, " Alice@Example.com ", "secret123", map[string]string{domain.MetaUsername: "alice"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	user, err := store.Users().GetByID(ctx, id)
	if err != nil {
		t.Fatalf("stored user: %v", err)
	}
	if user.Email != "alice@example.com" || user.EmailConfirmedAt != nil {
		t.Fatalf("unexpected stored user %+v", user)
	}
	if user.Metadata[domain.MetaUsername] != "alice" {
		t.Fatalf("expected metadata to be kept, got %+v", user.Metadata)
	}
	if user.PasswordHash == "" || user.PasswordHash == "secret123" {
		t.Fatalf("expected bcrypt hash")
	}
	if sender.lastTo != "alice@example.com" || len(sender.lastCode) != 6 {
		t.Fatalf("expected code mailed, got %+v", sender)
	}
	if sender.lastExpires.Before(start.Add(9*time.Minute)) || sender.lastExpires.After(start.Add(11*time.Minute)) {
		t.Fatalf("expected expiry around 10 minutes, got %v", sender.lastExpires)
	}
}

func TestLocal_SignUpValidation(t *testing.T) {
	p, _ := newLocal(t, &mockSender{}, nil)
	ctx := context.Background()
	if _, err := p.SignUp(ctx, "not-an-email", "secret123", nil); !errors.Is(err, domain.ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if _, err := p.SignUp(ctx, "a@example.com", "123", nil); !errors.Is(err, domain.ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	if _, err := p.SignUp(ctx, "a@example.com", "secret123", nil); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if _, err := p.SignUp(ctx, "A@example.com", "secret123", nil); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict for duplicate email, got %v", err)
	}
}

func TestLocal_SignInBlocksUnconfirmedUntilConfirmed(t *testing.T) {
	sender := &mockSender{}
	p, _ := newLocal(t, sender, nil)
	ctx := context.Background()

	if _, err := p.SignUp(ctx, "bob@example.com", "secret123", nil); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if _, err := p.SignIn(ctx, "bob@example.com", "wrong-pass"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := p.SignIn(ctx, "bob@example.com", "secret123"); !errors.Is(err, domain.ErrEmailNotConfirmed) {
		t.Fatalf("expected ErrEmailNotConfirmed, got %v", err)
	}
	if err := p.ConfirmEmail(ctx, "bob@example.com", "abc"); !errors.Is(err, ErrConfirmationInvalid) {
		t.Fatalf("expected malformed code rejected, got %v", err)
	}
	if err := p.ConfirmEmail(ctx, "bob@example.com", sender.lastCode); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := p.ConfirmEmail(ctx, "bob@example.com", sender.lastCode); err != nil {
		t.Fatalf("confirm must be idempotent, got %v", err)
	}

	session, err := p.SignIn(ctx, "bob@example.com", "secret123")
	if err != nil {
		t.Fatalf("signin: %v", err)
	}
	ident, err := p.GetUser(ctx, session.AccessToken)
	if err != nil || ident == nil {
		t.Fatalf("expected identity, got %v %v", ident, err)
	}
	if ident.Email != "bob@example.com" || !ident.EmailConfirmed {
		t.Fatalf("unexpected identity %+v", ident)
	}
}

func TestLocal_ConfirmEmailExpired(t *testing.T) {
	sender := &mockSender{}
	p, _ := newLocal(t, sender, nil)
	ctx := context.Background()
	if _, err := p.SignUp(ctx, "carol@example.com", "secret123", nil); err != nil {
		t.Fatalf("signup: %v", err)
	}
	p.now = func() time.Time { return time.Now().UTC().Add(11 * time.Minute) }
	if err := p.ConfirmEmail(ctx, "carol@example.com", sender.lastCode); !errors.Is(err, ErrConfirmationInvalid) {
		t.Fatalf("expected expired code rejected, got %v", err)
	}
}

func TestLocal_SignInUnknownEmail(t *testing.T) {
	p, _ := newLocal(t, &mockSender{}, nil)
	if _, err := p.SignIn(context.Background(), "nobody@example.com", "secret123"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLocal_RefreshAndSignOut(t *testing.T) {
	sender := &mockSender{}
	p, _ := newLocal(t, sender, nil)
	ctx := context.Background()
	if _, err := p.SignUp(ctx, "dan@example.com", "secret123", nil); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if err := p.ConfirmEmail(ctx, "dan@example.com", sender.lastCode); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	session, err := p.SignIn(ctx, "dan@example.com", "secret123")
	if err != nil {
		t.Fatalf("signin: %v", err)
	}

	rotated, err := p.Refresh(ctx, session.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if rotated.RefreshToken == session.RefreshToken {
		t.Fatalf("expected a new refresh token")
	}
	if _, err := p.Refresh(ctx, session.RefreshToken); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected rotated token to be unusable, got %v", err)
	}

	if err := p.SignOut(ctx, rotated); err != nil {
		t.Fatalf("signout: %v", err)
	}
	if _, err := p.Refresh(ctx, rotated.RefreshToken); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected refresh after signout to fail, got %v", err)
	}
	if err := p.SignOut(ctx, rotated); err != nil {
		t.Fatalf("signout must be idempotent, got %v", err)
	}
}

func TestLocal_GetUserInvalidToken(t *testing.T) {
	p, _ := newLocal(t, &mockSender{}, nil)
	ident, err := p.GetUser(context.Background(), "garbage")
	if err != nil || ident != nil {
		t.Fatalf("expected nil identity without error, got %v %v", ident, err)
	}
}

func TestLocal_ResendConfirmation(t *testing.T) {
	ctx := context.Background()

	t.Run("rate limited", func(t *testing.T) {
		p, _ := newLocal(t, &mockSender{}, mockLimiter{allow: false})
		if err := p.ResendConfirmation(ctx, "a@example.com"); !errors.Is(err, domain.ErrRateLimited) {
			t.Fatalf("expected ErrRateLimited, got %v", err)
		}
	})

	t.Run("unknown email is silent", func(t *testing.T) {
		sender := &mockSender{}
		p, _ := newLocal(t, sender, nil)
		if err := p.ResendConfirmation(ctx, "ghost@example.com"); err != nil {
			t.Fatalf("expected nil, got %v", err)
		}
		if sender.calls != 0 {
			t.Fatalf("no mail expected for unknown email")
		}
	})

	t.Run("new code replaces the old one", func(t *testing.T) {
		sender := &mockSender{}
		p, _ := newLocal(t, sender, nil)
		if _, err := p.SignUp(ctx, "eve@example.com", "secret123", nil); err != nil {
			t.Fatalf("signup: %v", err)
		}
		first := sender.lastCode
		if err := p.ResendConfirmation(ctx, "eve@example.com"); err != nil {
			t.Fatalf("resend: %v", err)
		}
		if sender.calls != 2 {
			t.Fatalf("expected second mail, got %d", sender.calls)
		}
		if first != sender.lastCode {
			if err := p.ConfirmEmail(ctx, "eve@example.com", first); !errors.Is(err, ErrConfirmationInvalid) {
				t.Fatalf("expected old code rejected, got %v", err)
			}
		}
		if err := p.ConfirmEmail(ctx, "eve@example.com", sender.lastCode); err != nil {
			t.Fatalf("confirm with new code: %v", err)
		}
	})

	t.Run("send failure is unavailable", func(t *testing.T) {
		sender := &mockSender{}
		p, _ := newLocal(t, sender, nil)
		if _, err := p.SignUp(ctx, "fay@example.com", "secret123", nil); err != nil {
			t.Fatalf("signup: %v", err)
		}
		sender.err = errors.New("smtp down")
		if err := p.ResendConfirmation(ctx, "fay@example.com"); !errors.Is(err, domain.ErrUpstreamUnavailable) {
			t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
		}
	})
}

func TestLocal_SignUpSucceedsWhenMailFails(t *testing.T) {
	sender := &mockSender{err: errors.New("smtp down")}
	p, _ := newLocal(t, sender, nil)
	if _, err := p.SignUp(context.Background(), "gus@example.com", "secret123", nil); err != nil {
		t.Fatalf("expected signup to succeed, got %v", err)
	}
}

func TestGenerateAndVerifyCode(t *testing.T) {
	code, stored, err := generateCode()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !isValidCode(code) {
		t.Fatalf("expected 6 digit code, got %q", code)
	}
	if !verifyCode(code, stored) {
		t.Fatalf("expected code to verify")
	}
	if verifyCode("999999x", stored) || verifyCode(code, "no-separator") {
		t.Fatalf("unexpected verification success")
	}
}
