package mockapi

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"

	"github.com/vedran77/geev/internal/domain"
	"github.com/vedran77/geev/internal/repository"
)

// The only credential pair the mock backend accepts.
const (
	DemoEmail    = "demo@geev.com"
	DemoPassword = "demo123"
)

const tokenTTL = 24 * time.Hour

var (
	ErrInvalidCreds     = errors.New("invalid email or password")
	ErrNotAuthenticated = errors.New("user not authenticated")
	ErrInvalidToken     = errors.New("invalid or expired token")
)

var (
	demoHashOnce sync.Once
	demoHash     string
	demoHashErr  error
)

func demoPasswordHash() (string, error) {
	demoHashOnce.Do(func() {
		demoHash, demoHashErr = hashPassword(DemoPassword)
	})
	return demoHash, demoHashErr
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterInput struct {
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	PhoneNumber *string `json:"phone_number,omitempty"`
}

type AuthResponse struct {
	User        *domain.User `json:"user"`
	AccessToken string       `json:"access_token"`
}

type AuthAPI struct {
	users     repository.UserRepository
	delay     Delayer
	jwtSecret []byte
	now       func() time.Time
}

func NewAuthAPI(users repository.UserRepository, delay Delayer, jwtSecret string) *AuthAPI {
	return &AuthAPI{
		users:     users,
		delay:     delay,
		jwtSecret: []byte(jwtSecret),
		now:       time.Now,
	}
}

// Login accepts only the demo credential pair.
func (a *AuthAPI) Login(ctx context.Context, creds Credentials) (*AuthResponse, error) {
	if err := a.delay.Delay(ctx, DefaultDelay); err != nil {
		return nil, err
	}

	hash, err := demoPasswordHash()
	if err != nil {
		return nil, fmt.Errorf("hashing demo password: %w", err)
	}
	if creds.Email != DemoEmail || !verifyPassword(creds.Password, hash) {
		return nil, ErrInvalidCreds
	}

	user, err := a.users.GetByEmail(ctx, DemoEmail)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCreds
	}

	return a.respond(user)
}

// Register always succeeds: it synthesizes a fresh user with the default
// Paris location and zeroed counters.
func (a *AuthAPI) Register(ctx context.Context, input RegisterInput) (*AuthResponse, error) {
	if err := a.delay.Delay(ctx, DefaultDelay); err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:          uuid.NewString(),
		Email:       strings.TrimSpace(input.Email),
		FirstName:   strings.TrimSpace(input.FirstName),
		LastName:    strings.TrimSpace(input.LastName),
		PhoneNumber: input.PhoneNumber,
		Location: &domain.Location{
			Latitude:  48.8566,
			Longitude: 2.3522,
			Address:   "Adresse non renseignée",
			City:      "Paris",
			ZipCode:   "75001",
		},
		CreatedAt: a.now(),
		Verified:  false,
		Rating:    5,
	}

	if err := a.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return a.respond(user)
}

// LoginWithGoogle synthesizes a federated user. There is no OAuth flow.
func (a *AuthAPI) LoginWithGoogle(ctx context.Context) (*AuthResponse, error) {
	if err := a.delay.Delay(ctx, DefaultDelay); err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:        "google-user-" + uuid.NewString(),
		Email:     "google@example.com",
		FirstName: "Utilisateur",
		LastName:  "Google",
		Location: &domain.Location{
			Latitude:  48.8566,
			Longitude: 2.3522,
			Address:   "Paris, France",
			City:      "Paris",
			ZipCode:   "75001",
		},
		CreatedAt: a.now(),
		Verified:  true,
		Rating:    5,
	}

	if err := a.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return a.respond(user)
}

// Logout holds no server-side session; it only answers after the delay.
func (a *AuthAPI) Logout(ctx context.Context) error {
	_, err := Call(ctx, a.delay, struct{}{}, LogoutDelay)
	return err
}

// UpdateProfile merges the patch into the stored user.
func (a *AuthAPI) UpdateProfile(ctx context.Context, userID string, patch domain.ProfilePatch) (*domain.User, error) {
	if err := a.delay.Delay(ctx, DefaultDelay); err != nil {
		return nil, err
	}

	user, err := a.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotAuthenticated
	}

	updated := patch.Apply(user)
	if err := a.users.Update(ctx, updated); err != nil {
		return nil, fmt.Errorf("updating user: %w", err)
	}
	return updated, nil
}

// ParseToken validates a session token and returns the user id it names.
func (a *AuthAPI) ParseToken(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		return a.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}

// User looks up a user without simulated delay.
func (a *AuthAPI) User(ctx context.Context, id string) (*domain.User, error) {
	return a.users.GetByID(ctx, id)
}

func (a *AuthAPI) respond(user *domain.User) (*AuthResponse, error) {
	token, err := a.generateToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generating token: %w", err)
	}
	return &AuthResponse{User: user, AccessToken: token}, nil
}

func (a *AuthAPI) generateToken(userID string) (string, error) {
	now := a.now()
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": now.Add(tokenTTL).Unix(),
		"iat": now.Unix(),
		"jti": uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)

	return fmt.Sprintf("%s:%s",
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

func verifyPassword(password, encoded string) bool {
	saltB64, hashB64, ok := strings.Cut(encoded, ":")
	if !ok {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(saltB64)
	if err != nil {
		return false
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(hashB64)
	if err != nil {
		return false
	}

	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
	return subtle.ConstantTimeCompare(hash, expectedHash) == 1
}
