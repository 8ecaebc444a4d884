package service

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Permissions understood by the middleware.
const (
	PermissionOperator = "operator"
	PermissionAdmin    = "admin"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrUserDisabled = errors.New("user disabled")
)

// AuthService validates operator tokens: a static token from configuration,
// otherwise the external auth service.
type AuthService struct {
	authURL       string
	operatorToken string
	client        *http.Client
}

type AuthUser struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
	Login       string   `json:"login"`
	Enabled     bool     `json:"enabled"`
}

func NewAuthService(authURL, operatorToken string) *AuthService {
	return &AuthService{
		authURL:       strings.TrimRight(authURL, "/"),
		operatorToken: operatorToken,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// HasPermission reports whether the user holds perm.
func (u *AuthUser) HasPermission(perm string) bool {
	for _, p := range u.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

func (u *AuthUser) IsAdmin() bool { return u.HasPermission(PermissionAdmin) }

// ValidateToken checks the static operator token, then asks
// AUTH_URL/users/current.
func (a *AuthService) ValidateToken(ctx context.Context, token string) (*AuthUser, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	if a.operatorToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(a.operatorToken)) == 1 {
		return &AuthUser{
			ID:          "operator",
			Name:        "operator",
			Permissions: []string{PermissionOperator, PermissionAdmin},
			Enabled:     true,
		}, nil
	}
	if a.authURL == "" {
		return nil, ErrInvalidToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/users/current", a.authURL), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ErrInvalidToken
	}

	var user AuthUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, err
	}
	if !user.Enabled {
		return nil, ErrUserDisabled
	}
	return &user, nil
}
