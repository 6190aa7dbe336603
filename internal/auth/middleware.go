package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/dennisdiepolder/callscope/internal/config"
	"github.com/dennisdiepolder/callscope/internal/identity"
	"github.com/dennisdiepolder/callscope/internal/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// Claims are the session token claims
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type contextKey string

const (
	UserContextKey   contextKey = "user"
	TenantContextKey contextKey = "tenant"
)

var (
	ErrMissingToken    = errors.New("missing token")
	ErrInvalidToken    = errors.New("invalid token")
	ErrProfileNotFound = errors.New("no user profile is linked to this identity")
)

// Signer issues HS256 session tokens for the local identity provider
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner creates a token signer
func NewSigner(secret string, ttl time.Duration) *Signer {
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token whose subject is the user id
func (s *Signer) Issue(user types.UserProfile) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.ttl)
	claims := Claims{
		Email: user.Email,
		Name:  strings.TrimSpace(user.FirstName + " " + user.LastName),
		Role:  string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, expires, nil
}

// Verifier validates a bearer token and returns its claims
type Verifier interface {
	Verify(token string) (*Claims, error)
}

// HMACVerifier checks tokens issued by Signer
type HMACVerifier struct {
	secret []byte
}

// NewHMACVerifier creates a verifier for the shared secret
func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

func (v *HMACVerifier) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// JWKSVerifier checks tokens of an external OIDC provider against its
// published signing keys
type JWKSVerifier struct {
	jwks   keyfunc.Keyfunc
	issuer string
}

// NewJWKSVerifier fetches the JWKS of the issuer (Keycloak layout)
func NewJWKSVerifier(issuerURL string) (*JWKSVerifier, error) {
	jwksURL := strings.TrimSuffix(issuerURL, "/") + "/protocol/openid-connect/certs"
	k, err := keyfunc.NewDefault([]string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("failed to create keyfunc: %w", err)
	}
	return &JWKSVerifier{jwks: k, issuer: issuerURL}, nil
}

func (v *JWKSVerifier) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, v.jwks.Keyfunc,
		jwt.WithValidMethods([]string{"RS256", "RS384", "RS512", "ES256", "ES384", "ES512"}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// ProfileLoader reads the user profile linked to a verified identity
type ProfileLoader interface {
	Profile(ctx context.Context, userID string) (types.UserProfile, error)
	ProfileByEmail(ctx context.Context, email string) (types.UserProfile, error)
}

// Authenticator resolves the caller of each request to a user profile
type Authenticator struct {
	mode     config.AuthMode
	verifier Verifier
	profiles ProfileLoader
	logger   zerolog.Logger
}

// NewAuthenticator creates an authenticator. verifier and profiles are
// unused in mode none.
func NewAuthenticator(mode config.AuthMode, verifier Verifier, profiles ProfileLoader, logger zerolog.Logger) *Authenticator {
	return &Authenticator{
		mode:     mode,
		verifier: verifier,
		profiles: profiles,
		logger:   logger.With().Str("component", "auth").Logger(),
	}
}

// DevUser is the identity used when authentication is disabled
var DevUser = types.UserProfile{
	Email:     "dev@callscope.local",
	FirstName: "Dev",
	LastName:  "User",
	Role:      types.RoleAdmin,
	Verified:  true,
}

// Middleware rejects requests without a valid session and stores the
// caller's profile in the request context
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.mode == config.AuthModeNone {
			user := DevUser
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), UserContextKey, &user)))
			return
		}

		tokenString := extractToken(r)
		if tokenString == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized: "+ErrMissingToken.Error())
			return
		}

		claims, err := a.verifier.Verify(tokenString)
		if err != nil {
			a.logger.Debug().Err(err).Msg("token validation failed")
			writeError(w, http.StatusUnauthorized, "Unauthorized: "+err.Error())
			return
		}

		user, err := a.loadProfile(r.Context(), claims)
		if err != nil {
			if errors.Is(err, ErrProfileNotFound) {
				writeError(w, http.StatusForbidden, err.Error())
				return
			}
			a.logger.Error().Err(err).Msg("failed to load user profile")
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, &user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) loadProfile(ctx context.Context, claims *Claims) (types.UserProfile, error) {
	var (
		user types.UserProfile
		err  error
	)
	if a.mode == config.AuthModeOIDC {
		if claims.Email == "" {
			return user, ErrProfileNotFound
		}
		user, err = a.profiles.ProfileByEmail(ctx, claims.Email)
	} else {
		user, err = a.profiles.Profile(ctx, claims.Subject)
	}
	if errors.Is(err, identity.ErrUserNotFound) {
		return user, ErrProfileNotFound
	}
	return user, err
}

// extractToken gets the bearer token from the Authorization header
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		return ""
	}
	return strings.TrimSpace(tokenString)
}

// GetUserFromContext retrieves the caller's profile from the request context
func GetUserFromContext(ctx context.Context) (*types.UserProfile, bool) {
	user, ok := ctx.Value(UserContextKey).(*types.UserProfile)
	return user, ok
}

// HasRole checks if the user has the given role
func HasRole(user *types.UserProfile, role types.Role) bool {
	return user.Role == role
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
