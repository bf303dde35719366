package validation

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/xscan/xscan/internal/auth"
)

// Field limits.
const (
	MinUsernameLength    = 3
	MaxUsernameLength    = 30
	MaxURLLength         = 2048
	MaxAlertTemplateSize = 200
)

var (
	ErrUsernameInvalid  = errors.New("username must be 3-30 characters of a-z, 0-9 or underscore")
	ErrUsernameReserved = errors.New("username is reserved")
	ErrURLInvalid       = errors.New("URL must be an absolute http or https URL")
	ErrURLUnsafe        = errors.New("URL uses unsafe scheme")
	ErrTemplateInvalid  = errors.New("template must contain {name} or {amount}")
)

// ReservedUsernames cannot be registered. They collide with routes or
// could be used to impersonate staff.
var ReservedUsernames = map[string]bool{
	// Routes
	"api":      true,
	"admin":    true,
	"healthz":  true,
	"readyz":   true,
	"metrics":  true,
	"overlay":  true,
	"me":       true,
	"static":   true,
	"assets":   true,
	"public":   true,
	"login":    true,
	"logout":   true,
	"register": true,
	"auth":     true,
	"oauth":    true,
	"callback": true,
	"webhook":  true,
	"webhooks": true,

	// Impersonation
	"xscan":         true,
	"support":       true,
	"staff":         true,
	"moderator":     true,
	"administrator": true,
	"root":          true,
	"system":        true,
	"anonymous":     true,

	// Account flows
	"password": true,
	"reset":    true,
	"verify":   true,
	"security": true,
}

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// NormalizeUsername lower-cases and trims a username.
func NormalizeUsername(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ValidateUsername checks a normalized username.
func ValidateUsername(name string) error {
	if len(name) < MinUsernameLength || len(name) > MaxUsernameLength || !usernamePattern.MatchString(name) {
		return ErrUsernameInvalid
	}
	if ReservedUsernames[name] {
		return ErrUsernameReserved
	}
	return nil
}

// ValidatePassword applies the password policy.
func ValidatePassword(pw string) error {
	return auth.CheckPasswordPolicy(pw)
}

// ValidateHTTPURL accepts absolute http(s) URLs with a host.
func ValidateHTTPURL(raw string) error {
	if raw == "" || len(raw) > MaxURLLength {
		return ErrURLInvalid
	}

	lower := strings.ToLower(raw)
	for _, scheme := range []string{"javascript:", "data:", "vbscript:", "file:"} {
		if strings.Contains(lower, scheme) {
			return ErrURLUnsafe
		}
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ErrURLInvalid
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrURLInvalid
	}
	return nil
}

// ValidateAlertTemplate requires at least one donation placeholder.
func ValidateAlertTemplate(tmpl string) error {
	if len(tmpl) > MaxAlertTemplateSize {
		return ErrTemplateInvalid
	}
	if !strings.Contains(tmpl, "{name}") && !strings.Contains(tmpl, "{amount}") {
		return ErrTemplateInvalid
	}
	return nil
}
