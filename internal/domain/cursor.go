package domain

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Cursor ancla la paginacion por (created_at, id). Para recetas ID es el id de la receta;
// para listas de seguidores es el id del perfil del otro extremo de la arista.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// Encode serializa el cursor como base64 url-safe de "RFC3339Nano|id".
func (c Cursor) Encode() string {
	raw := c.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor devuelve nil para el cursor vacio y ErrInvalidCursor si no se puede leer.
func DecodeCursor(s string) (*Cursor, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	ts, id, ok := strings.Cut(string(raw), "|")
	if !ok {
		return nil, ErrInvalidCursor
	}
	createdAt, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvalidCursor
	}
	return &Cursor{CreatedAt: createdAt.UTC(), ID: id}, nil
}

// RecipeCursor construye el cursor que apunta despues de la receta dada.
func RecipeCursor(r Recipe) Cursor {
	return Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
}

// After indica si (createdAt, id) va despues del cursor en orden created_at DESC, id ASC.
func (c Cursor) After(createdAt time.Time, id string) bool {
	if createdAt.Before(c.CreatedAt) {
		return true
	}
	return createdAt.Equal(c.CreatedAt) && id > c.ID
}
