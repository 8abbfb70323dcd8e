package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"recipeshare/internal/domain"
)

// HostedConfig apunta al servicio de auth gestionado (API compatible con GoTrue).
type HostedConfig struct {
	BaseURL string
	AnonKey string
	// SiteURL recibe el enlace de confirmacion en /auth/callback.
	SiteURL string
	Timeout time.Duration
}

// Hosted delega credenciales, sesiones y confirmacion de email al proveedor externo.
type Hosted struct {
	logger  *zap.Logger
	baseURL string
	anonKey string
	siteURL string
	client  *http.Client
}

func NewHosted(logger *zap.Logger, cfg HostedConfig) (*Hosted, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("auth url is required")
	}
	if strings.TrimSpace(cfg.AnonKey) == "" {
		return nil, errors.New("auth anon key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Hosted{
		logger:  logger,
		baseURL: base,
		anonKey: cfg.AnonKey,
		siteURL: strings.TrimRight(cfg.SiteURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

var (
	_ Provider  = (*Hosted)(nil)
	_ Refresher = (*Hosted)(nil)
	_ Confirmer = (*Hosted)(nil)
)

type gotrueUser struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at"`
	ConfirmedAt      *time.Time     `json:"confirmed_at"`
	UserMetadata     map[string]any `json:"user_metadata"`
	CreatedAt        time.Time      `json:"created_at"`
}

func (u gotrueUser) identity() domain.Identity {
	meta := make(map[string]string, len(u.UserMetadata))
	for k, v := range u.UserMetadata {
		if s, ok := v.(string); ok {
			meta[k] = s
		}
	}
	return domain.Identity{
		ID:             u.ID,
		Email:          u.Email,
		EmailConfirmed: u.EmailConfirmedAt != nil || u.ConfirmedAt != nil,
		Metadata:       meta,
		CreatedAt:      u.CreatedAt,
	}
}

type gotrueSession struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int64       `json:"expires_in"`
	User         *gotrueUser `json:"user"`
}

func (s gotrueSession) session() domain.Session {
	out := domain.Session{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresIn:    s.ExpiresIn,
	}
	if s.User != nil {
		out.UserID = s.User.ID
	}
	return out
}

// gotrueError cubre los dos formatos de error que devuelve el proveedor.
type gotrueError struct {
	Status           int    `json:"-"`
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorName        string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e gotrueError) text() string {
	for _, s := range []string{e.Msg, e.Message, e.ErrorDescription, e.ErrorName} {
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return http.StatusText(e.Status)
}

// classify traduce la respuesta de error del proveedor a la taxonomia del dominio.
func (e gotrueError) classify(op string) error {
	text := strings.ToLower(e.text())
	switch {
	case e.Status >= 500:
		return domain.Unavailable(op, fmt.Errorf("status %d: %s", e.Status, e.text()))
	case e.Status == http.StatusTooManyRequests, strings.HasPrefix(e.ErrorCode, "over_"):
		return domain.ErrRateLimited
	case e.ErrorCode == "email_not_confirmed", strings.Contains(text, "email not confirmed"):
		return domain.ErrEmailNotConfirmed
	case e.ErrorCode == "invalid_credentials", e.ErrorName == "invalid_grant", strings.Contains(text, "invalid login credentials"):
		return domain.ErrInvalidCredentials
	case e.ErrorCode == "user_already_exists", e.ErrorCode == "email_exists", strings.Contains(text, "already registered"):
		return domain.ErrEmailTaken
	case e.ErrorCode == "weak_password":
		return domain.ErrWeakPassword
	case e.ErrorCode == "email_address_invalid", e.ErrorCode == "validation_failed" && strings.Contains(text, "email"):
		return domain.ErrInvalidEmail
	case e.ErrorCode == "otp_expired", e.ErrorCode == "otp_disabled", strings.Contains(text, "token has expired or is invalid"):
		return ErrConfirmationInvalid
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		return domain.ErrUnauthenticated
	default:
		return domain.InvalidInputf("%s", e.text())
	}
}

// do ejecuta la llamada y decodifica out si la respuesta es 2xx.
func (h *Hosted) do(ctx context.Context, op, method, path string, query url.Values, bearer string, body, out any) error {
	endpoint := h.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", h.anonKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return domain.Unavailable(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.Unavailable(op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := gotrueError{Status: resp.StatusCode}
		_ = json.Unmarshal(raw, &apiErr)
		classified := apiErr.classify(op)
		h.logger.Debug("auth provider error",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
			zap.String("error_code", apiErr.ErrorCode),
			zap.Error(classified),
		)
		return classified
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return domain.Unavailable(op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (h *Hosted) SignUp(ctx context.Context, emailAddr, password string, attrs map[string]string) (string, error) {
	emailAddr = normalizeEmail(emailAddr)
	if err := validateCredentials(emailAddr, password); err != nil {
		return "", err
	}
	query := url.Values{}
	if h.siteURL != "" {
		query.Set("redirect_to", h.siteURL+"/auth/callback")
	}
	body := map[string]any{
		"email":    emailAddr,
		"password": password,
		"data":     copyAttrs(attrs),
	}

	// Con confirmacion activa la respuesta es el usuario; sin ella, una sesion con el usuario dentro.
	var resp struct {
		gotrueUser
		User *gotrueUser `json:"user"`
	}
	if err := h.do(ctx, "signup", http.MethodPost, "/auth/v1/signup", query, "", body, &resp); err != nil {
		return "", err
	}
	if resp.User != nil && resp.User.ID != "" {
		return resp.User.ID, nil
	}
	if resp.ID == "" {
		return "", domain.Unavailable("signup", errors.New("response without user id"))
	}
	return resp.ID, nil
}

func (h *Hosted) SignIn(ctx context.Context, emailAddr, password string) (domain.Session, error) {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || password == "" {
		return domain.Session{}, domain.ErrInvalidCredentials
	}
	var resp gotrueSession
	err := h.do(ctx, "signin", http.MethodPost, "/auth/v1/token",
		url.Values{"grant_type": {"password"}}, "",
		map[string]string{"email": emailAddr, "password": password},
		&resp,
	)
	if errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrUnauthenticated) {
		return domain.Session{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return domain.Session{}, err
	}
	if resp.User != nil && resp.User.EmailConfirmedAt == nil && resp.User.ConfirmedAt == nil {
		return domain.Session{}, domain.ErrEmailNotConfirmed
	}
	return resp.session(), nil
}

func (h *Hosted) SignOut(ctx context.Context, session domain.Session) error {
	if strings.TrimSpace(session.AccessToken) == "" {
		return nil
	}
	err := h.do(ctx, "signout", http.MethodPost, "/auth/v1/logout", nil, session.AccessToken, nil, nil)
	if errors.Is(err, domain.ErrUnauthenticated) || errors.Is(err, domain.ErrInvalidInput) {
		return nil
	}
	return err
}

func (h *Hosted) GetUser(ctx context.Context, accessToken string) (*domain.Identity, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, nil
	}
	var user gotrueUser
	err := h.do(ctx, "get user", http.MethodGet, "/auth/v1/user", nil, accessToken, nil, &user)
	if errors.Is(err, domain.ErrUnauthenticated) || errors.Is(err, domain.ErrInvalidInput) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	id := user.identity()
	if id.ID == "" || !id.EmailConfirmed {
		return nil, nil
	}
	return &id, nil
}

func (h *Hosted) Refresh(ctx context.Context, refreshToken string) (domain.Session, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return domain.Session{}, domain.ErrUnauthenticated
	}
	var resp gotrueSession
	err := h.do(ctx, "refresh", http.MethodPost, "/auth/v1/token",
		url.Values{"grant_type": {"refresh_token"}}, "",
		map[string]string{"refresh_token": refreshToken},
		&resp,
	)
	if errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrInvalidCredentials) {
		return domain.Session{}, domain.ErrUnauthenticated
	}
	if err != nil {
		return domain.Session{}, err
	}
	return resp.session(), nil
}

// ConfirmEmail verifica el codigo que el proveedor envio junto al enlace.
func (h *Hosted) ConfirmEmail(ctx context.Context, emailAddr, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrConfirmationInvalid
	}
	err := h.do(ctx, "verify", http.MethodPost, "/auth/v1/verify", nil, "",
		map[string]string{"type": "signup", "email": normalizeEmail(emailAddr), "token": code},
		nil,
	)
	if errors.Is(err, domain.ErrUnauthenticated) {
		return ErrConfirmationInvalid
	}
	return err
}

func (h *Hosted) ResendConfirmation(ctx context.Context, emailAddr string) error {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return domain.ErrInvalidEmail
	}
	body := map[string]any{"type": "signup", "email": emailAddr}
	if h.siteURL != "" {
		body["options"] = map[string]string{"email_redirect_to": h.siteURL + "/auth/callback"}
	}
	return h.do(ctx, "resend", http.MethodPost, "/auth/v1/resend", nil, "", body, nil)
}
