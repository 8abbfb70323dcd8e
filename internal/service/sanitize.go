package service

import (
	"html"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"recipeshare/internal/domain"
)

// Sanitizer reduce el texto libre de usuarios a texto plano.
type Sanitizer struct {
	policy *bluemonday.Policy
}

func NewSanitizer() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// maxSanitizePasses acota el decodificado de entidades anidadas (&amp;lt;...).
const maxSanitizePasses = 4

// Text elimina todo el markup y devuelve el texto sin escapar. Decodifica y
// sanea hasta un punto fijo, asi el markup codificado como entidades no
// reaparece como HTML vivo. Si no converge devuelve la salida escapada.
func (s *Sanitizer) Text(in string) string {
	if s == nil {
		return strings.TrimSpace(in)
	}
	cur := in
	for range maxSanitizePasses {
		next := html.UnescapeString(s.policy.Sanitize(cur))
		if next == cur {
			return strings.TrimSpace(cur)
		}
		cur = next
	}
	return strings.TrimSpace(s.policy.Sanitize(cur))
}

// validateImageURL acepta vacio o una URL absoluta http/https.
func validateImageURL(field, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", domain.InvalidInputf("%s must be an http(s) url", field)
	}
	return u.String(), nil
}
