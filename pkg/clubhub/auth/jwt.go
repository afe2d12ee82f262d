package auth

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

const (
	issuer = "clubhub"

	// PurposeVerifyEmail marks tokens mailed out for address verification.
	// They are never accepted as session tokens.
	PurposeVerifyEmail = "verify-email"

	verificationDuration = 24 * time.Hour
)

// Claims represents the JWT claims
type Claims struct {
	UserID  uint   `json:"user_id"`
	Email   string `json:"email"`
	Role    string `json:"role,omitempty"`
	Purpose string `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

var (
	settingsMu    sync.RWMutex
	secret        []byte
	tokenDuration = 24 * time.Hour
)

// Configure sets the signing key and session lifetime.
// Without it the key is read from JWT_SECRET, falling back to a development default.
func Configure(key string, duration time.Duration) {
	settingsMu.Lock()
	defer settingsMu.Unlock()
	if key != "" {
		secret = []byte(key)
	}
	if duration > 0 {
		tokenDuration = duration
	}
}

// getJWTSecret returns the configured secret, the environment value or a default for development
func getJWTSecret() []byte {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	if secret != nil {
		return secret
	}
	if env := os.Getenv("JWT_SECRET"); env != "" {
		return []byte(env)
	}
	// Default for development only - should be set in production
	return []byte("clubhub-dev-secret-change-in-production")
}

// getTokenDuration returns the session token validity duration
func getTokenDuration() time.Duration {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return tokenDuration
}

func sign(claims *Claims, lifetime time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    issuer,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(getJWTSecret())
}

// GenerateToken creates a new session token for a user
func GenerateToken(userID uint, email string, role string) (string, error) {
	return sign(&Claims{UserID: userID, Email: email, Role: role}, getTokenDuration())
}

// GenerateVerificationToken creates the token embedded in verification links
func GenerateVerificationToken(userID uint, email string) (string, error) {
	return sign(&Claims{UserID: userID, Email: email, Purpose: PurposeVerifyEmail}, verificationDuration)
}

func parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return getJWTSecret(), nil
	}, jwt.WithIssuer(issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// ValidateToken validates a session token and returns the claims
func ValidateToken(tokenString string) (*Claims, error) {
	claims, err := parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateVerificationToken validates a verification link token
func ValidateVerificationToken(tokenString string) (*Claims, error) {
	claims, err := parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != PurposeVerifyEmail {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
