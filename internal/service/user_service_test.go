package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yourorg/orderdesk/internal/domain"
	"github.com/yourorg/orderdesk/internal/repository/memory"
	"github.com/yourorg/orderdesk/internal/security/auth"
	"github.com/yourorg/orderdesk/internal/security/session"
)

func newUserFixture() (*UserService, *session.Manager) {
	sessions := session.NewManager(
		auth.NewTokenManager("test-secret", "orderdesk"),
		session.NewMemoryRegistry(),
		time.Hour,
		nil,
	)
	return NewUserService(memory.NewUserRepository(), sessions, nil), sessions
}

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	s, _ := newUserFixture()

	user, err := s.Register(ctx, "Ada Diner", "ada@example.com", "secret")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if user.ID == "" {
		t.Fatal("expected generated user id")
	}
	if user.PasswordHash == "secret" || user.PasswordHash == "" {
		t.Fatal("expected password to be stored hashed")
	}
	if !user.HasRole(domain.RoleDiner) {
		t.Error("expected default diner role")
	}

	got, err := s.Authenticate(ctx, "ada@example.com", "secret")
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("expected user %s, got %s", user.ID, got.ID)
	}
}

func TestRegisterRequiresAllFields(t *testing.T) {
	ctx := context.Background()
	s, _ := newUserFixture()

	for _, c := range []struct{ name, email, password string }{
		{"", "a@b.com", "pw"},
		{"Ada", "", "pw"},
		{"Ada", "a@b.com", ""},
	} {
		_, err := s.Register(ctx, c.name, c.email, c.password)
		var validationErr *domain.ValidationError
		if !errors.As(err, &validationErr) {
			t.Errorf("expected validation error for %+v, got %v", c, err)
		}
	}
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	ctx := context.Background()
	s, _ := newUserFixture()

	first, err := s.Register(ctx, "Ada", "ada@example.com", "first-pw")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	_, err = s.Register(ctx, "Imposter", "ada@example.com", "other-pw")
	var conflictErr *domain.ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("expected conflict error, got %v", err)
	}

	// First write wins: the original credentials still work
	got, err := s.Authenticate(ctx, "ada@example.com", "first-pw")
	if err != nil {
		t.Fatalf("original credentials rejected: %v", err)
	}
	if got.ID != first.ID {
		t.Error("expected the original account to survive the duplicate attempt")
	}
}

func TestAuthenticateFailuresAreUniform(t *testing.T) {
	ctx := context.Background()
	s, _ := newUserFixture()
	s.Register(ctx, "Ada", "ada@example.com", "secret")

	_, errUnknown := s.Authenticate(ctx, "nobody@example.com", "secret")
	_, errWrongPw := s.Authenticate(ctx, "ada@example.com", "wrong")

	var authnErr *domain.AuthenticationError
	if !errors.As(errUnknown, &authnErr) || !errors.As(errWrongPw, &authnErr) {
		t.Fatalf("expected authentication errors, got %v / %v", errUnknown, errWrongPw)
	}
	if errUnknown.Error() != errWrongPw.Error() {
		t.Error("unknown email and wrong password must be indistinguishable")
	}
}

func TestUpdateProfilePartial(t *testing.T) {
	ctx := context.Background()
	s, _ := newUserFixture()
	user, _ := s.Register(ctx, "Ada", "ada@example.com", "secret")

	updated, err := s.UpdateProfile(ctx, user.ID, "Ada Lovelace", "", "")
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Name != "Ada Lovelace" {
		t.Errorf("expected updated name, got %s", updated.Name)
	}
	if updated.Email != "ada@example.com" {
		t.Errorf("expected email preserved, got %s", updated.Email)
	}

	// Old password still valid since it was not changed
	if _, err := s.Authenticate(ctx, "ada@example.com", "secret"); err != nil {
		t.Fatalf("expected old password to remain valid: %v", err)
	}

	// Changing the password invalidates the old one
	if _, err := s.UpdateProfile(ctx, user.ID, "", "", "new-secret"); err != nil {
		t.Fatalf("password update failed: %v", err)
	}
	if _, err := s.Authenticate(ctx, "ada@example.com", "secret"); err == nil {
		t.Fatal("expected old password to be rejected after change")
	}
	if _, err := s.Authenticate(ctx, "ada@example.com", "new-secret"); err != nil {
		t.Fatalf("expected new password to work: %v", err)
	}
}

func TestDeleteRevokesAllSessions(t *testing.T) {
	ctx := context.Background()
	s, sessions := newUserFixture()
	user, _ := s.Register(ctx, "Ada", "ada@example.com", "secret")

	t1, _ := sessions.Issue(ctx, user)
	t2, _ := sessions.Issue(ctx, user)

	if err := s.Delete(ctx, user.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if sessions.Resolve(ctx, t1) != nil || sessions.Resolve(ctx, t2) != nil {
		t.Fatal("expected every session of the deleted user to resolve to Anonymous")
	}

	var notFound *domain.NotFoundError
	if _, err := s.Get(ctx, user.ID); !errors.As(err, &notFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestListPaginationAndGlob(t *testing.T) {
	ctx := context.Background()
	s, _ := newUserFixture()

	s.Register(ctx, "Alice", "alice@example.com", "pw")
	s.Register(ctx, "Bob", "bob@example.com", "pw")
	s.Register(ctx, "Carol", "carol@example.com", "pw")

	page0, more, err := s.List(ctx, 0, 2, "")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(page0) != 2 || !more {
		t.Fatalf("expected 2 users with more=true, got %d more=%v", len(page0), more)
	}

	page1, more, err := s.List(ctx, 1, 2, "")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(page1) != 1 || more {
		t.Fatalf("expected 1 user with more=false, got %d more=%v", len(page1), more)
	}

	// Pages reconstruct the full set without duplicates
	seen := map[string]bool{}
	for _, u := range append(page0, page1...) {
		if seen[u.ID] {
			t.Fatalf("user %s appeared on two pages", u.ID)
		}
		seen[u.ID] = true
	}

	// Glob filter is case-insensitive with * wildcards
	matched, _, err := s.List(ctx, 0, 10, "*ali*")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(matched) != 1 || matched[0].Name != "Alice" {
		t.Fatalf("expected glob to match Alice only, got %d users", len(matched))
	}
}
