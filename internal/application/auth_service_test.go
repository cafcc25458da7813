package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jhu-collab/proj-hourly-sub001/internal/persistence"
)

func verifyStub(hashedPassword, password string) error {
	if hashedPassword != "hash:"+password {
		return ErrInvalidCredentials
	}
	return nil
}

func newAuthFixture(t *testing.T) (*AuthService, *fakeAccountRepo, *fakeSessionRepo) {
	t.Helper()
	accounts := newFakeAccountRepo()
	sessions := newFakeSessionRepo()
	accounts.accounts["student-1"] = persistence.Account{
		ID:           "student-1",
		Email:        "student-1@jhu.edu",
		Role:         persistence.RoleStudent,
		PasswordHash: "hash:correct horse",
	}
	service := NewAuthService(accounts, sessions, verifyStub, sequentialIDs("tok"), fixedClock(testNow), time.Hour, nil)
	return service, accounts, sessions
}

func TestAuthService_Authenticate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("issues a session for valid credentials", func(t *testing.T) {
		t.Parallel()
		service, _, sessions := newAuthFixture(t)

		result, err := service.Authenticate(ctx, AuthenticateParams{
			Email:    "Student-1@JHU.edu",
			Password: "correct horse",
		})
		if err != nil {
			t.Fatalf("authenticate failed: %v", err)
		}
		if result.Account.PasswordHash != "" {
			t.Fatal("password hash must not leak")
		}
		if result.Session.AccountID != "student-1" {
			t.Fatalf("unexpected session: %+v", result.Session)
		}
		if !result.Session.ExpiresAt.Equal(testNow.Add(time.Hour)) {
			t.Fatalf("unexpected expiry: %v", result.Session.ExpiresAt)
		}
		if _, ok := sessions.sessions[result.Session.Token]; !ok {
			t.Fatal("session not persisted")
		}
	})

	t.Run("rejects a wrong password", func(t *testing.T) {
		t.Parallel()
		service, _, _ := newAuthFixture(t)
		_, err := service.Authenticate(ctx, AuthenticateParams{Email: "student-1@jhu.edu", Password: "wrong"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("rejects an unknown email without leaking existence", func(t *testing.T) {
		t.Parallel()
		service, _, _ := newAuthFixture(t)
		_, err := service.Authenticate(ctx, AuthenticateParams{Email: "nobody@jhu.edu", Password: "correct horse"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("rejects a disabled account", func(t *testing.T) {
		t.Parallel()
		service, accounts, _ := newAuthFixture(t)
		account := accounts.accounts["student-1"]
		account.Disabled = true
		accounts.accounts["student-1"] = account

		_, err := service.Authenticate(ctx, AuthenticateParams{Email: "student-1@jhu.edu", Password: "correct horse"})
		if !errors.Is(err, ErrAccountDisabled) {
			t.Fatalf("expected ErrAccountDisabled, got %v", err)
		}
	})
}

func TestAuthService_ValidateSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	login := func(t *testing.T, service *AuthService) persistence.Session {
		t.Helper()
		result, err := service.Authenticate(ctx, AuthenticateParams{Email: "student-1@jhu.edu", Password: "correct horse"})
		if err != nil {
			t.Fatalf("authenticate failed: %v", err)
		}
		return result.Session
	}

	t.Run("returns the principal for a live session", func(t *testing.T) {
		t.Parallel()
		service, _, _ := newAuthFixture(t)
		session := login(t, service)

		principal, err := service.ValidateSession(ctx, ValidateSessionParams{Token: session.Token})
		if err != nil {
			t.Fatalf("validate failed: %v", err)
		}
		if principal.AccountID != "student-1" || principal.Role != persistence.RoleStudent {
			t.Fatalf("unexpected principal: %+v", principal)
		}
	})

	t.Run("rejects an expired session", func(t *testing.T) {
		t.Parallel()
		service, _, _ := newAuthFixture(t)
		session := login(t, service)
		service.now = fixedClock(testNow.Add(2 * time.Hour))

		_, err := service.ValidateSession(ctx, ValidateSessionParams{Token: session.Token})
		if !errors.Is(err, ErrSessionExpired) {
			t.Fatalf("expected ErrSessionExpired, got %v", err)
		}
	})

	t.Run("rejects a revoked session", func(t *testing.T) {
		t.Parallel()
		service, _, _ := newAuthFixture(t)
		session := login(t, service)
		if err := service.Logout(ctx, LogoutParams{Token: session.Token}); err != nil {
			t.Fatalf("logout failed: %v", err)
		}

		_, err := service.ValidateSession(ctx, ValidateSessionParams{Token: session.Token})
		if !errors.Is(err, ErrSessionRevoked) {
			t.Fatalf("expected ErrSessionRevoked, got %v", err)
		}
	})

	t.Run("rejects an unknown token", func(t *testing.T) {
		t.Parallel()
		service, _, _ := newAuthFixture(t)
		_, err := service.ValidateSession(ctx, ValidateSessionParams{Token: "bogus"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestAuthService_Logout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	service, _, _ := newAuthFixture(t)

	if err := service.Logout(ctx, LogoutParams{Token: "bogus"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}
