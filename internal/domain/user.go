package domain

import "time"

// Identity es la vista que el proveedor de identidad entrega del usuario autenticado.
type Identity struct {
	ID             string            `json:"id"`
	Email          string            `json:"email"`
	EmailConfirmed bool              `json:"email_confirmed"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// Session agrupa los tokens emitidos por el proveedor.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
	UserID       string `json:"user_id,omitempty"`
}

// User es la cuenta persistida por el proveedor local.
type User struct {
	ID               string            `json:"id"`
	Email            string            `json:"email"`
	PasswordHash     string            `json:"-"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	EmailConfirmedAt *time.Time        `json:"email_confirmed_at,omitempty"`
	ConfirmCodeHash  string            `json:"-"`
	ConfirmExpiresAt *time.Time        `json:"-"`
	CreatedAt        time.Time         `json:"created_at"`
}

// Identity proyecta la cuenta local al contrato del proveedor.
func (u User) Identity() Identity {
	return Identity{
		ID:             u.ID,
		Email:          u.Email,
		EmailConfirmed: u.EmailConfirmedAt != nil,
		Metadata:       u.Metadata,
		CreatedAt:      u.CreatedAt,
	}
}

// Claves de metadata que viajan con el alta.
const (
	MetaUsername = "username"
	MetaFullName = "full_name"
)
