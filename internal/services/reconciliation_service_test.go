package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"moneta/internal/models"
	"moneta/internal/testutil"
)

func TestReconciliationImport(t *testing.T) {
	statementDay := testutil.Date(2024, time.March, 10)
	row := func(accountID, amount string) StatementRow {
		return StatementRow{AccountID: accountID, Date: statementDay, Amount: testutil.Dec(amount), Description: "POS XYZ"}
	}

	t.Run("matches_within_one_day", func(t *testing.T) {
		for _, day := range []int{9, 10, 11} {
			db := testutil.SetupTestDB(t)
			svc := NewReconciliationService(db)
			user := testutil.CreateTestUser(t, db)
			account := testutil.CreateTestAccountWithBalance(t, db, user.ID, "500000")
			booked := testutil.CreateTestTransaction(t, db, user.ID, account.ID, models.TransactionTypeExpense, "150000", testutil.Date(2024, time.March, day))

			result, err := svc.Import(user.ID, []StatementRow{row(account.ID, "-150000")}, testutil.Dec("0"))
			testutil.AssertNoError(t, err)
			if result.Matched != 1 || result.Unmatched != 0 {
				t.Fatalf("day %d: expected 1 match, got %+v", day, result)
			}
			if result.MatchedTransactionIDs[0] != booked.ID {
				t.Errorf("day %d: matched wrong transaction", day)
			}

			var stored models.Transaction
			testutil.AssertNoError(t, db.Where("id = ?", booked.ID).First(&stored).Error)
			if !stored.Cleared {
				t.Errorf("day %d: expected transaction to be cleared", day)
			}
			if stored.Reconciled {
				t.Errorf("day %d: import must not reconcile", day)
			}
			if !strings.HasSuffix(stored.Note, " | stmt: POS XYZ") {
				t.Errorf("day %d: unexpected note %q", day, stored.Note)
			}
			if stored.StatementDate == nil || !stored.StatementDate.Equal(statementDay) {
				t.Errorf("day %d: expected statement date %v, got %v", day, statementDay, stored.StatementDate)
			}
			testutil.AssertBalance(t, db, account.ID, "500000")
			testutil.TeardownTestDB(t, db)
		}
	})

	t.Run("outside_window_is_unmatched", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewReconciliationService(db)
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccount(t, db, user.ID)
		testutil.CreateTestTransaction(t, db, user.ID, account.ID, models.TransactionTypeExpense, "150000", testutil.Date(2024, time.March, 8))
		testutil.CreateTestTransaction(t, db, user.ID, account.ID, models.TransactionTypeExpense, "150000", testutil.Date(2024, time.March, 12))

		result, err := svc.Import(user.ID, []StatementRow{row(account.ID, "-150000")}, testutil.Dec("0"))
		testutil.AssertNoError(t, err)
		if result.Matched != 0 || result.Unmatched != 1 {
			t.Errorf("expected no match, got %+v", result)
		}
		testutil.AssertCount(t, db, &models.Transaction{}, 0, "cleared = ?", true)
	})

	t.Run("direction_must_agree", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewReconciliationService(db)
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccount(t, db, user.ID)
		testutil.CreateTestTransaction(t, db, user.ID, account.ID, models.TransactionTypeIncome, "150000", statementDay)

		result, err := svc.Import(user.ID, []StatementRow{row(account.ID, "-150000")}, testutil.Dec("0"))
		testutil.AssertNoError(t, err)
		if result.Matched != 0 {
			t.Errorf("expense row must not match income, got %+v", result)
		}

		result, err = svc.Import(user.ID, []StatementRow{row(account.ID, "150000")}, testutil.Dec("0"))
		testutil.AssertNoError(t, err)
		if result.Matched != 1 {
			t.Errorf("expected income row to match, got %+v", result)
		}
	})

	t.Run("tolerance", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewReconciliationService(db)
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccount(t, db, user.ID)
		testutil.CreateTestTransaction(t, db, user.ID, account.ID, models.TransactionTypeExpense, "100", statementDay)

		result, err := svc.Import(user.ID, []StatementRow{row(account.ID, "-102")}, testutil.Dec("1"))
		testutil.AssertNoError(t, err)
		if result.Matched != 0 {
			t.Errorf("difference above tolerance must not match, got %+v", result)
		}

		result, err = svc.Import(user.ID, []StatementRow{row(account.ID, "-102")}, testutil.Dec("2"))
		testutil.AssertNoError(t, err)
		if result.Matched != 1 {
			t.Errorf("difference equal to tolerance must match, got %+v", result)
		}
	})

	t.Run("newest_candidate_wins", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewReconciliationService(db)
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccount(t, db, user.ID)
		testutil.CreateTestTransaction(t, db, user.ID, account.ID, models.TransactionTypeExpense, "40", testutil.Date(2024, time.March, 9))
		newest := testutil.CreateTestTransaction(t, db, user.ID, account.ID, models.TransactionTypeExpense, "40", testutil.Date(2024, time.March, 11))

		result, err := svc.Import(user.ID, []StatementRow{row(account.ID, "-40")}, testutil.Dec("0"))
		testutil.AssertNoError(t, err)
		if result.Matched != 1 || result.MatchedTransactionIDs[0] != newest.ID {
			t.Errorf("expected the newest candidate to match, got %+v", result)
		}
	})

	t.Run("cleared_rows_are_not_matched_twice", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewReconciliationService(db)
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccount(t, db, user.ID)
		testutil.CreateTestTransaction(t, db, user.ID, account.ID, models.TransactionTypeExpense, "40", statementDay)

		rows := []StatementRow{row(account.ID, "-40"), row(account.ID, "-40")}
		result, err := svc.Import(user.ID, rows, testutil.Dec("0"))
		testutil.AssertNoError(t, err)
		if result.Matched != 1 || result.Unmatched != 1 {
			t.Errorf("expected one match and one miss, got %+v", result)
		}
	})

	t.Run("foreign_account_is_skipped", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewReconciliationService(db)
		user := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		foreign := testutil.CreateTestAccount(t, db, other.ID)
		testutil.CreateTestTransaction(t, db, other.ID, foreign.ID, models.TransactionTypeExpense, "40", statementDay)

		result, err := svc.Import(user.ID, []StatementRow{row(foreign.ID, "-40")}, testutil.Dec("0"))
		testutil.AssertNoError(t, err)
		if result.Matched != 0 || result.Unmatched != 1 {
			t.Errorf("expected foreign row to be unmatched, got %+v", result)
		}
		testutil.AssertCount(t, db, &models.Transaction{}, 0, "cleared = ?", true)
	})

	t.Run("candidate_window_is_capped", func(t *testing.T) {
		for _, tt := range []struct {
			name      string
			fillers   int
			wantMatch int
		}{
			{"match_within_window", reconcileCandidates - 1, 1},
			{"match_beyond_window", reconcileCandidates, 0},
		} {
			t.Run(tt.name, func(t *testing.T) {
				db := testutil.SetupTestDB(t)
				defer testutil.TeardownTestDB(t, db)
				svc := NewReconciliationService(db)
				user := testutil.CreateTestUser(t, db)
				account := testutil.CreateTestAccount(t, db, user.ID)
				older := testutil.CreateTestTransaction(t, db, user.ID, account.ID, models.TransactionTypeExpense, "150000", testutil.Date(2024, time.March, 9))
				for i := 0; i < tt.fillers; i++ {
					testutil.CreateTestTransaction(t, db, user.ID, account.ID, models.TransactionTypeExpense, "1", testutil.Date(2024, time.March, 11))
				}

				result, err := svc.Import(user.ID, []StatementRow{row(account.ID, "-150000")}, testutil.Dec("0"))
				testutil.AssertNoError(t, err)
				if result.Matched != tt.wantMatch {
					t.Fatalf("expected %d matches, got %+v", tt.wantMatch, result)
				}
				testutil.AssertCount(t, db, &models.Transaction{}, int64(tt.wantMatch), "id = ? AND cleared = ?", older.ID, true)
			})
		}
	})

	t.Run("failure_keeps_committed_rows", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewReconciliationService(db)
		user := testutil.CreateTestUser(t, db)
		good := testutil.CreateTestAccount(t, db, user.ID)
		broken := testutil.CreateTestAccount(t, db, user.ID)
		first := testutil.CreateTestTransaction(t, db, user.ID, good.ID, models.TransactionTypeExpense, "40", statementDay)
		testutil.CreateTestTransaction(t, db, user.ID, broken.ID, models.TransactionTypeExpense, "40", statementDay)
		testutil.CreateTestTransaction(t, db, user.ID, good.ID, models.TransactionTypeExpense, "60", statementDay)

		testutil.AssertNoError(t, db.Exec(fmt.Sprintf(
			"CREATE TRIGGER fail_match BEFORE UPDATE ON transactions WHEN OLD.account_id = '%s' BEGIN SELECT RAISE(ABORT, 'write failed'); END",
			broken.ID)).Error)

		rows := []StatementRow{row(good.ID, "-40"), row(broken.ID, "-40"), row(good.ID, "-60")}
		result, err := svc.Import(user.ID, rows, testutil.Dec("0"))
		testutil.AssertAppError(t, err, "INTERNAL_ERROR")
		if result == nil {
			t.Fatal("expected the partial result alongside the error")
		}
		if result.Matched != 1 || len(result.MatchedTransactionIDs) != 1 || result.MatchedTransactionIDs[0] != first.ID {
			t.Errorf("expected only the first row counted, got %+v", result)
		}
		testutil.AssertCount(t, db, &models.Transaction{}, 1, "cleared = ?", true)
	})

	t.Run("negative_tolerance_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewReconciliationService(db)

		_, err := svc.Import("user", nil, testutil.Dec("-1"))
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}
