package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"recipeshare/internal/domain"
)

// MemoryCode es el unico codigo de confirmacion que acepta Memory.
const MemoryCode = "000000"

type memoryAccount struct {
	identity domain.Identity
	password string
}

// Memory es el proveedor en proceso para tests y desarrollo sin red.
type Memory struct {
	mu       sync.Mutex
	accounts map[string]*memoryAccount // por email
	access   map[string]string         // access token -> user id
	refresh  map[string]string         // refresh token -> user id

	// AutoConfirm confirma las cuentas al darlas de alta.
	AutoConfirm bool
	failure     error
}

// SetFail hace que todas las operaciones devuelvan err; nil lo desactiva.
func (m *Memory) SetFail(err error) {
	m.mu.Lock()
	m.failure = err
	m.mu.Unlock()
}

func (m *Memory) failed() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failure
}

func NewMemory() *Memory {
	return &Memory{
		accounts: map[string]*memoryAccount{},
		access:   map[string]string{},
		refresh:  map[string]string{},
	}
}

var (
	_ Provider  = (*Memory)(nil)
	_ Refresher = (*Memory)(nil)
	_ Confirmer = (*Memory)(nil)
)

func (m *Memory) SignUp(_ context.Context, emailAddr, password string, attrs map[string]string) (string, error) {
	if err := m.failed(); err != nil {
		return "", err
	}
	emailAddr = normalizeEmail(emailAddr)
	if err := validateCredentials(emailAddr, password); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[emailAddr]; ok {
		return "", domain.ErrEmailTaken
	}
	acc := &memoryAccount{
		identity: domain.Identity{
			ID:             uuid.NewString(),
			Email:          emailAddr,
			EmailConfirmed: m.AutoConfirm,
			Metadata:       copyAttrs(attrs),
			CreatedAt:      time.Now().UTC(),
		},
		password: password,
	}
	m.accounts[emailAddr] = acc
	return acc.identity.ID, nil
}

func (m *Memory) SignIn(_ context.Context, emailAddr, password string) (domain.Session, error) {
	if err := m.failed(); err != nil {
		return domain.Session{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[normalizeEmail(emailAddr)]
	if !ok || acc.password != password {
		return domain.Session{}, domain.ErrInvalidCredentials
	}
	if !acc.identity.EmailConfirmed {
		return domain.Session{}, domain.ErrEmailNotConfirmed
	}
	return m.issueLocked(acc.identity.ID), nil
}

func (m *Memory) issueLocked(userID string) domain.Session {
	s := domain.Session{
		AccessToken:  "access-" + uuid.NewString(),
		RefreshToken: "refresh-" + uuid.NewString(),
		ExpiresIn:    3600,
		UserID:       userID,
	}
	m.access[s.AccessToken] = userID
	m.refresh[s.RefreshToken] = userID
	return s
}

func (m *Memory) SignOut(_ context.Context, session domain.Session) error {
	if err := m.failed(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.access, session.AccessToken)
	delete(m.refresh, session.RefreshToken)
	return nil
}

func (m *Memory) GetUser(_ context.Context, accessToken string) (*domain.Identity, error) {
	if err := m.failed(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	userID, ok := m.access[accessToken]
	if !ok {
		return nil, nil
	}
	for _, acc := range m.accounts {
		if acc.identity.ID == userID && acc.identity.EmailConfirmed {
			id := acc.identity
			return &id, nil
		}
	}
	return nil, nil
}

func (m *Memory) Refresh(_ context.Context, refreshToken string) (domain.Session, error) {
	if err := m.failed(); err != nil {
		return domain.Session{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	userID, ok := m.refresh[refreshToken]
	if !ok {
		return domain.Session{}, domain.ErrUnauthenticated
	}
	delete(m.refresh, refreshToken)
	return m.issueLocked(userID), nil
}

func (m *Memory) ConfirmEmail(_ context.Context, emailAddr, code string) error {
	if err := m.failed(); err != nil {
		return err
	}
	if strings.TrimSpace(code) != MemoryCode {
		return ErrConfirmationInvalid
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[normalizeEmail(emailAddr)]
	if !ok {
		return ErrConfirmationInvalid
	}
	acc.identity.EmailConfirmed = true
	return nil
}

func (m *Memory) ResendConfirmation(_ context.Context, emailAddr string) error {
	if err := m.failed(); err != nil {
		return err
	}
	if normalizeEmail(emailAddr) == "" {
		return domain.ErrInvalidEmail
	}
	return nil
}

// Confirm marca la cuenta como confirmada sin codigo.
func (m *Memory) Confirm(emailAddr string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc, ok := m.accounts[normalizeEmail(emailAddr)]; ok {
		acc.identity.EmailConfirmed = true
	}
}
