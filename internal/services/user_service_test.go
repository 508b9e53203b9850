package services

import (
	"testing"

	"moneta/internal/testutil"
)

func TestCreateUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewUserService(db, 26)

	user, err := svc.CreateUser(" Alice@Example.com ", "secret123", "Alice", "Doe")
	testutil.AssertNoError(t, err)

	t.Run("normalises_email", func(t *testing.T) {
		if user.Email != "alice@example.com" {
			t.Errorf("expected lowercased email, got %q", user.Email)
		}
	})

	t.Run("uses_default_start_day", func(t *testing.T) {
		if user.PeriodStartDay != 26 {
			t.Errorf("expected start day 26, got %d", user.PeriodStartDay)
		}
	})

	t.Run("hashes_password", func(t *testing.T) {
		if user.Password == "secret123" {
			t.Error("password stored in clear text")
		}
		if !svc.VerifyPassword(user, "secret123") {
			t.Error("expected password to verify")
		}
		if svc.VerifyPassword(user, "wrong") {
			t.Error("expected wrong password to fail")
		}
	})

	t.Run("duplicate_email", func(t *testing.T) {
		_, err := svc.CreateUser("ALICE@example.com", "other", "", "")
		testutil.AssertAppError(t, err, "DUPLICATE_EMAIL")
	})

	t.Run("missing_fields", func(t *testing.T) {
		_, err := svc.CreateUser("", "x", "", "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("lookup", func(t *testing.T) {
		byEmail, err := svc.GetUserByEmail("alice@EXAMPLE.com")
		testutil.AssertNoError(t, err)
		if byEmail.ID != user.ID {
			t.Error("lookup by email returned another user")
		}

		_, err = svc.GetUserByID("missing")
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
	})
}

func TestNewUserServiceInvalidDefault(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewUserService(db, 31)

	user, err := svc.CreateUser("bob@example.com", "secret123", "", "")
	testutil.AssertNoError(t, err)
	if user.PeriodStartDay != 1 {
		t.Errorf("expected fallback start day 1, got %d", user.PeriodStartDay)
	}
}

func TestUpdateSettings(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewUserService(db, 1)
	user := testutil.CreateTestUser(t, db)

	updated, err := svc.UpdateSettings(user.ID, 15)
	testutil.AssertNoError(t, err)
	if updated.PeriodStartDay != 15 {
		t.Errorf("expected 15, got %d", updated.PeriodStartDay)
	}

	for _, day := range []int{0, 29} {
		_, err := svc.UpdateSettings(user.ID, day)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	}

	_, err = svc.UpdateSettings("missing", 10)
	testutil.AssertAppError(t, err, "USER_NOT_FOUND")
}
