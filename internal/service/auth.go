package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"voxnow-backend/internal/models"
	"voxnow-backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/argon2"
)

var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// AuthService issues and validates admin sessions. Session expiry lives in
// the signed token and is checked server-side on every request.
type AuthService interface {
	Register(username, password, role string) (*models.User, error)
	EnsureAdmin(username, password string) error
	Login(username, password string) (string, time.Time, error)
	Logout(username string) error
	ListUsers() ([]*models.User, error)
	DeleteUser(id int64) error
	JWTSecret() []byte
}

type authService struct {
	repo      repository.AuthRepository
	jwtSecret []byte
	tokenTTL  time.Duration
	logger    *zap.Logger
}

// NewAuthService creates an auth service with the given signing secret.
func NewAuthService(repo repository.AuthRepository, jwtSecret string, tokenTTL time.Duration, logger *zap.Logger) AuthService {
	if tokenTTL == 0 {
		tokenTTL = 24 * time.Hour
	}
	return &authService{
		repo:      repo,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		logger:    logger,
	}
}

func (s *authService) JWTSecret() []byte {
	return s.jwtSecret
}

func (s *authService) Register(username, password, role string) (*models.User, error) {
	if _, err := s.repo.GetUserByUsername(username); err == nil {
		return nil, ErrUserAlreadyExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if role == "" {
		role = "admin"
	}
	user := &models.User{
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
	}
	if err := s.repo.CreateUser(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User registered", zap.String("username", username), zap.String("role", role))
	return user, nil
}

// EnsureAdmin creates the initial admin account when the users table is
// empty. A no-op when credentials are unset or any user already exists.
func (s *authService) EnsureAdmin(username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	n, err := s.repo.CountUsers()
	if err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.Register(username, password, "admin"); err != nil {
		return fmt.Errorf("failed to bootstrap admin: %w", err)
	}
	return nil
}

func (s *authService) Login(username, password string) (string, time.Time, error) {
	user, err := s.repo.GetUserByUsername(username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", time.Time{}, ErrUserNotFound
		}
		return "", time.Time{}, fmt.Errorf("failed to retrieve user: %w", err)
	}

	if !verifyPassword(user.PasswordHash, password) {
		return "", time.Time{}, ErrInvalidCredentials
	}

	expirationTime := time.Now().Add(s.tokenTTL)
	claims := &models.Claims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Info("User logged in", zap.String("username", user.Username))
	return tokenString, expirationTime, nil
}

func (s *authService) Logout(username string) error {
	// Tokens are short-lived and stateless; logout is an audit event.
	s.logger.Info("User logged out", zap.String("username", username))
	return nil
}

func (s *authService) ListUsers() ([]*models.User, error) {
	return s.repo.ListUsers()
}

func (s *authService) DeleteUser(id int64) error {
	if err := s.repo.DeleteUser(id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

// hashPassword derives an argon2id hash in the standard encoded format.
func hashPassword(password string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encodedHash := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads, encodedSalt, encodedHash), nil
}

// verifyPassword compares a plaintext password against an encoded hash.
func verifyPassword(encoded, password string) bool {
	var version int
	var m, t, p uint32
	var saltStr, hashStr string

	n, err := fmt.Sscanf(encoded, "$argon2id$v=%d$m=%d,t=%d,p=%d$%s",
		&version, &m, &t, &p, &saltStr)
	if err != nil || n != 5 {
		return false
	}
	// Sscanf's %s stops at whitespace only; split salt$hash manually.
	for i := 0; i < len(saltStr); i++ {
		if saltStr[i] == '$' {
			hashStr = saltStr[i+1:]
			saltStr = saltStr[:i]
			break
		}
	}
	if hashStr == "" {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(saltStr)
	if err != nil {
		return false
	}
	expected, err := base64.RawStdEncoding.DecodeString(hashStr)
	if err != nil {
		return false
	}

	actual := argon2.IDKey([]byte(password), salt, t, m, uint8(p), uint32(len(expected)))
	return subtle.ConstantTimeCompare(actual, expected) == 1
}
