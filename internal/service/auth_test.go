package service

import (
	"errors"
	"testing"
	"time"

	"voxnow-backend/internal/models"
	"voxnow-backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

func newAuthService(t *testing.T) AuthService {
	t.Helper()
	db, err := repository.NewDB("sqlite", t.TempDir()+"/test.db", zap.NewNop())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewAuthService(repository.NewAuthRepository(db, zap.NewNop()), "test-secret", time.Hour, zap.NewNop())
}

func TestHashVerifyRoundTrip(t *testing.T) {
	hash, err := hashPassword("s3cret!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !verifyPassword(hash, "s3cret!") {
		t.Error("correct password rejected")
	}
	if verifyPassword(hash, "wrong") {
		t.Error("wrong password accepted")
	}
	if verifyPassword("not-a-hash", "s3cret!") {
		t.Error("garbage hash accepted")
	}
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newAuthService(t)

	user, err := svc.Register("alice", "pw123456", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Role != "admin" {
		t.Errorf("role = %q, want default admin", user.Role)
	}
	if user.PasswordHash == "pw123456" {
		t.Error("password stored in plaintext")
	}

	token, expiresAt, err := svc.Login("alice", "pw123456")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Error("token already expired")
	}

	claims := &models.Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return svc.JWTSecret(), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Username != "alice" || claims.Role != "admin" {
		t.Errorf("claims = %q/%q", claims.Username, claims.Role)
	}
}

func TestLoginFailures(t *testing.T) {
	svc := newAuthService(t)
	if _, err := svc.Register("alice", "pw123456", "admin"); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, _, err := svc.Login("alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := svc.Login("nobody", "pw123456"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	svc := newAuthService(t)
	if _, err := svc.Register("alice", "pw123456", "admin"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register("alice", "other", "admin"); !errors.Is(err, ErrUserAlreadyExists) {
		t.Errorf("err = %v, want ErrUserAlreadyExists", err)
	}
}

func TestEnsureAdmin(t *testing.T) {
	svc := newAuthService(t)

	if err := svc.EnsureAdmin("", ""); err != nil {
		t.Fatalf("empty credentials: %v", err)
	}
	users, err := svc.ListUsers()
	if err != nil || len(users) != 0 {
		t.Fatalf("list = %v (%v), want empty", users, err)
	}

	if err := svc.EnsureAdmin("admin", "pw123456"); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	users, err = svc.ListUsers()
	if err != nil || len(users) != 1 {
		t.Fatalf("list = %v (%v), want 1", users, err)
	}
	if users[0].Username != "admin" || users[0].Role != "admin" {
		t.Errorf("user = %q/%q", users[0].Username, users[0].Role)
	}

	// Users exist now; a second bootstrap must not add or replace anyone
	if err := svc.EnsureAdmin("other", "pw123456"); err != nil {
		t.Fatalf("rerun: %v", err)
	}
	users, err = svc.ListUsers()
	if err != nil || len(users) != 1 {
		t.Fatalf("list after rerun = %v (%v), want 1", users, err)
	}
}

func TestDeleteUser(t *testing.T) {
	svc := newAuthService(t)
	if _, err := svc.Register("alice", "pw123456", "admin"); err != nil {
		t.Fatalf("register: %v", err)
	}

	users, err := svc.ListUsers()
	if err != nil || len(users) != 1 {
		t.Fatalf("list = %v (%v)", users, err)
	}
	if err := svc.DeleteUser(users[0].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.DeleteUser(users[0].ID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
}
