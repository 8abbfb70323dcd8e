// Package identity abstrae el proveedor de autenticacion detras de un contrato estable.
//
// Hay tres variantes: Hosted (GoTrue/Supabase por HTTP), Local (cuentas en Postgres con JWT)
// y Memory (doble de prueba en proceso). Ninguna redirige: todo resultado es un valor o un error.
package identity

import (
	"context"
	"strings"

	"recipeshare/internal/domain"
)

// Provider es el contrato minimo que consume el resto del servicio.
type Provider interface {
	// SignUp registra la cuenta y devuelve el id del usuario. attrs viaja como metadata.
	SignUp(ctx context.Context, email, password string, attrs map[string]string) (string, error)
	// SignIn falla con ErrEmailNotConfirmed o ErrInvalidCredentials.
	SignIn(ctx context.Context, email, password string) (domain.Session, error)
	SignOut(ctx context.Context, session domain.Session) error
	// GetUser devuelve nil sin error cuando la sesion no es valida.
	GetUser(ctx context.Context, accessToken string) (*domain.Identity, error)
}

// Refresher rota un refresh token por una sesion nueva.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (domain.Session, error)
}

// Confirmer expone la confirmacion de email por codigo.
type Confirmer interface {
	ConfirmEmail(ctx context.Context, email, code string) error
	ResendConfirmation(ctx context.Context, email string) error
}

const MinPasswordLen = 6

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validateCredentials aplica las reglas comunes de alta.
func validateCredentials(email, password string) error {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 || strings.ContainsAny(email, " \t\r\n") {
		return domain.ErrInvalidEmail
	}
	if len(password) < MinPasswordLen {
		return domain.ErrWeakPassword
	}
	return nil
}
