// Package identity implements sign-up, sign-in, e-mail verification and
// password reset against the user profiles in the system database.
package identity

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/dennisdiepolder/callscope/internal/config"
	"github.com/dennisdiepolder/callscope/internal/mailer"
	"github.com/dennisdiepolder/callscope/internal/storage"
	"github.com/dennisdiepolder/callscope/internal/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 8
	codeDigits        = 6
)

var (
	ErrEmailTaken         = errors.New("an account with this e-mail already exists")
	ErrInvalidCredentials = errors.New("invalid e-mail or password")
	ErrEmailNotVerified   = errors.New("e-mail address is not verified")
	ErrInvalidCode        = errors.New("invalid or expired code")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrUserNotFound       = errors.New("user not found")
)

// SignUpInput is the data needed to register an account
type SignUpInput struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Locale    string `json:"locale,omitempty" validate:"omitempty,max=35"`
}

// Session is a signed-in user with its bearer token
type Session struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
	User      types.UserProfile `json:"user"`
}

// Provider is the identity collaborator used by the HTTP layer
type Provider interface {
	SignUp(ctx context.Context, in SignUpInput) (types.UserProfile, error)
	VerifyEmail(ctx context.Context, email, code string) error
	ResendVerification(ctx context.Context, email string) error
	SignIn(ctx context.Context, email, password string) (Session, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
	Profile(ctx context.Context, userID string) (types.UserProfile, error)
	ProfileByEmail(ctx context.Context, email string) (types.UserProfile, error)
}

// UserStore persists user profiles
type UserStore interface {
	Create(ctx context.Context, user *types.UserProfile) error
	ByEmail(ctx context.Context, email string) (types.UserProfile, error)
	ByID(ctx context.Context, id string) (types.UserProfile, error)
	MarkVerified(ctx context.Context, id primitive.ObjectID) error
	SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error
}

// TokenIssuer signs session tokens
type TokenIssuer interface {
	Issue(user types.UserProfile) (string, time.Time, error)
}

// Mailer delivers transactional e-mail
type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// Local is the built-in identity provider
type Local struct {
	users      UserStore
	codes      CodeStore
	mail       Mailer
	tokens     TokenIssuer
	cfg        config.AuthConfig
	appBaseURL string
	logger     zerolog.Logger
}

// NewLocal creates a new local identity provider
func NewLocal(users UserStore, codes CodeStore, mail Mailer, tokens TokenIssuer, cfg config.AuthConfig, appBaseURL string, logger zerolog.Logger) *Local {
	return &Local{
		users:      users,
		codes:      codes,
		mail:       mail,
		tokens:     tokens,
		cfg:        cfg,
		appBaseURL: strings.TrimSuffix(appBaseURL, "/"),
		logger:     logger.With().Str("component", "identity").Logger(),
	}
}

func verifyKey(email string) string { return "verify:" + email }
func resetKey(token string) string  { return "reset:" + token }

// SignUp registers an unverified viewer account and mails a verification code
func (p *Local) SignUp(ctx context.Context, in SignUpInput) (types.UserProfile, error) {
	if len(in.Password) < MinPasswordLength {
		return types.UserProfile{}, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return types.UserProfile{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := types.UserProfile{
		Email:        storage.NormalizeEmail(in.Email),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PasswordHash: string(hash),
		Role:         types.RoleViewer,
		Databases:    []string{},
		Locale:       in.Locale,
	}
	if err := p.users.Create(ctx, &user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return types.UserProfile{}, ErrEmailTaken
		}
		return types.UserProfile{}, err
	}

	if err := p.sendVerification(ctx, user); err != nil {
		return types.UserProfile{}, err
	}

	p.logger.Info().Str("user_id", user.ID.Hex()).Msg("user signed up")
	return user, nil
}

func (p *Local) sendVerification(ctx context.Context, user types.UserProfile) error {
	code, err := randomCode(codeDigits)
	if err != nil {
		return err
	}
	if err := p.codes.Put(ctx, verifyKey(user.Email), code, p.cfg.VerificationTTL); err != nil {
		return err
	}
	return p.mail.Send(ctx, mailer.VerificationMessage(user.Email, user.FirstName, code, p.cfg.VerificationTTL))
}

// VerifyEmail confirms the address with the mailed code. A wrong code does
// not consume the stored one.
func (p *Local) VerifyEmail(ctx context.Context, email, code string) error {
	email = storage.NormalizeEmail(email)
	stored, err := p.codes.Get(ctx, verifyKey(email))
	if errors.Is(err, ErrCodeNotFound) {
		return ErrInvalidCode
	}
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(strings.TrimSpace(code))) != 1 {
		return ErrInvalidCode
	}

	user, err := p.users.ByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrInvalidCode
	}
	if err != nil {
		return err
	}
	if err := p.users.MarkVerified(ctx, user.ID); err != nil {
		return err
	}
	if err := p.codes.Delete(ctx, verifyKey(email)); err != nil {
		p.logger.Warn().Err(err).Msg("failed to delete used verification code")
	}

	p.logger.Info().Str("user_id", user.ID.Hex()).Msg("e-mail verified")
	return nil
}

// ResendVerification replaces the pending code of an unverified account and
// mails it again. Unknown and already verified addresses succeed silently.
func (p *Local) ResendVerification(ctx context.Context, email string) error {
	user, err := p.users.ByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		p.logger.Debug().Msg("verification resend requested for unknown e-mail")
		return nil
	}
	if err != nil {
		return err
	}
	if user.Verified {
		return nil
	}
	if err := p.sendVerification(ctx, user); err != nil {
		return err
	}

	p.logger.Info().Str("user_id", user.ID.Hex()).Msg("verification code re-sent")
	return nil
}

// SignIn checks the password and issues a session token
func (p *Local) SignIn(ctx context.Context, email, password string) (Session, error) {
	user, err := p.users.ByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return Session{}, ErrInvalidCredentials
	}
	if !user.Verified {
		return Session{}, ErrEmailNotVerified
	}

	token, expires, err := p.tokens.Issue(user)
	if err != nil {
		return Session{}, err
	}

	p.logger.Info().Str("user_id", user.ID.Hex()).Msg("user signed in")
	return Session{Token: token, ExpiresAt: expires, User: user}, nil
}

// RequestPasswordReset mails a reset link. Unknown addresses succeed silently.
func (p *Local) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := p.users.ByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		p.logger.Debug().Msg("password reset requested for unknown e-mail")
		return nil
	}
	if err != nil {
		return err
	}

	token := uuid.NewString()
	if err := p.codes.Put(ctx, resetKey(token), user.ID.Hex(), p.cfg.ResetTTL); err != nil {
		return err
	}
	link := fmt.Sprintf("%s/reset-password?token=%s", p.appBaseURL, token)
	return p.mail.Send(ctx, mailer.ResetMessage(user.Email, user.FirstName, link, p.cfg.ResetTTL))
}

// ResetPassword sets a new password using a mailed reset token. Tokens are
// single use.
func (p *Local) ResetPassword(ctx context.Context, token, password string) error {
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	if _, err := uuid.Parse(token); err != nil {
		return ErrInvalidCode
	}

	userID, err := p.codes.Get(ctx, resetKey(token))
	if errors.Is(err, ErrCodeNotFound) {
		return ErrInvalidCode
	}
	if err != nil {
		return err
	}
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return ErrInvalidCode
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := p.users.SetPassword(ctx, oid, string(hash)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrInvalidCode
		}
		return err
	}
	if err := p.codes.Delete(ctx, resetKey(token)); err != nil {
		p.logger.Warn().Err(err).Msg("failed to delete used reset token")
	}

	p.logger.Info().Str("user_id", userID).Msg("password reset")
	return nil
}

// Profile returns the profile linked to a session subject
func (p *Local) Profile(ctx context.Context, userID string) (types.UserProfile, error) {
	user, err := p.users.ByID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return user, ErrUserNotFound
	}
	return user, err
}

// ProfileByEmail returns the profile linked to an externally issued identity
func (p *Local) ProfileByEmail(ctx context.Context, email string) (types.UserProfile, error) {
	user, err := p.users.ByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return user, ErrUserNotFound
	}
	return user, err
}

// randomCode returns a zero-padded decimal code
func randomCode(digits int) (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}
