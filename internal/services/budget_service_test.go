package services

import (
	"testing"
	"time"

	"moneta/internal/clock"
	"moneta/internal/models"
	"moneta/internal/period"
	"moneta/internal/testutil"
)

func TestEffectiveLimit(t *testing.T) {
	tests := []struct {
		name      string
		base      string
		carryover bool
		prevLimit string
		prevSpent string
		want      string
	}{
		{"carries_unspent", "1000000", true, "800000", "500000", "1300000"},
		{"overspend_is_floored", "1000", true, "800", "950", "1000"},
		{"carryover_off", "1000", false, "800", "500", "1000"},
		{"exactly_spent", "200", true, "150", "150", "200"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EffectiveLimit(testutil.Dec(tt.base), tt.carryover, testutil.Dec(tt.prevLimit), testutil.Dec(tt.prevSpent))
			testutil.AssertDecimal(t, "limit", got, tt.want)
		})
	}
}

func TestBudgetProgress(t *testing.T) {
	tests := []struct {
		name          string
		limit         string
		spent         string
		wantRemaining string
		wantRatio     string
		wantStatus    BudgetStatus
	}{
		{"under", "1000", "250", "750", "0.25", BudgetStatusOK},
		{"almost_over", "1000", "800", "200", "0.8", BudgetStatusAlmostOver},
		{"over_is_capped", "1000", "1500", "0", "1", BudgetStatusOver},
		{"zero_limit", "0", "50", "0", "0", BudgetStatusOK},
		{"one_cent_under_limit", "100000.00", "99999.99", "0.01", "0.999999", BudgetStatusAlmostOver},
		{"one_cent_under_eighty_percent", "100000.00", "79999.99", "20000.01", "0.799999", BudgetStatusOK},
		{"exactly_at_limit", "100000.00", "100000.00", "0", "1", BudgetStatusOver},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remaining, ratio := BudgetProgress(testutil.Dec(tt.limit), testutil.Dec(tt.spent))
			testutil.AssertDecimal(t, "remaining", remaining, tt.wantRemaining)
			testutil.AssertDecimal(t, "ratio", ratio, tt.wantRatio)
			if got := budgetStatus(ratio); got != tt.wantStatus {
				t.Errorf("status = %s, want %s", got, tt.wantStatus)
			}
		})
	}
}

func TestCreateBudget(t *testing.T) {
	may := period.New(2024, time.May)

	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, testClock)
		user := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, user.ID, models.CategoryKindExpense)

		budget, err := svc.CreateBudget(user.ID, BudgetInput{CategoryID: category.ID, Period: may, Amount: testutil.Dec("400"), Carryover: true})
		testutil.AssertNoError(t, err)

		if !budget.Period.Equal(testutil.Date(2024, time.May, 1)) {
			t.Errorf("expected period stored as 2024-05-01, got %s", budget.Period)
		}
		if budget.Category.ID != category.ID {
			t.Error("expected category to be attached")
		}
	})

	t.Run("duplicate_period_and_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, testClock)
		user := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, user.ID, models.CategoryKindExpense)

		_, err := svc.CreateBudget(user.ID, BudgetInput{CategoryID: category.ID, Period: may, Amount: testutil.Dec("400")})
		testutil.AssertNoError(t, err)
		_, err = svc.CreateBudget(user.ID, BudgetInput{CategoryID: category.ID, Period: may, Amount: testutil.Dec("500")})
		testutil.AssertAppError(t, err, "DUPLICATE_BUDGET")
	})

	t.Run("negative_amount", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, testClock)
		user := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, user.ID, models.CategoryKindExpense)

		_, err := svc.CreateBudget(user.ID, BudgetInput{CategoryID: category.ID, Period: may, Amount: testutil.Dec("-1")})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("income_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, testClock)
		user := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, user.ID, models.CategoryKindIncome)

		_, err := svc.CreateBudget(user.ID, BudgetInput{CategoryID: category.ID, Period: may, Amount: testutil.Dec("1")})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("wrong_user_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, testClock)
		user := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, other.ID, models.CategoryKindExpense)

		_, err := svc.CreateBudget(user.ID, BudgetInput{CategoryID: category.ID, Period: may, Amount: testutil.Dec("1")})
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})
}

func TestBudgetCRUD(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewBudgetService(db, testClock)
	user := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)
	category := testutil.CreateTestCategory(t, db, user.ID, models.CategoryKindExpense)
	budget := testutil.CreateTestBudget(t, db, user.ID, category.ID, period.New(2024, time.March), "300", false)

	t.Run("get_wrong_user", func(t *testing.T) {
		_, err := svc.GetBudgetByID(other.ID, budget.ID)
		testutil.AssertAppError(t, err, "BUDGET_NOT_FOUND")
	})

	t.Run("update_amount_and_carryover", func(t *testing.T) {
		carry := true
		updated, err := svc.UpdateBudget(user.ID, budget.ID, BudgetUpdateFields{Amount: decPtr("350"), Carryover: &carry})
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, "amount", updated.Amount, "350")
		if !updated.Carryover {
			t.Error("expected carryover on")
		}
	})

	t.Run("progress", func(t *testing.T) {
		account := testutil.CreateTestAccount(t, db, user.ID)
		testutil.CreateTestExpense(t, db, user.ID, account.ID, category.ID, "70", testutil.Date(2024, time.February, 20))

		view, err := svc.GetBudgetProgress(user.ID, budget.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, "spent", view.Spent, "70")
		testutil.AssertDecimal(t, "remaining", view.Remaining, "280")
		if view.PeriodLabel != "2024-03" {
			t.Errorf("expected period label 2024-03, got %s", view.PeriodLabel)
		}
	})

	t.Run("delete", func(t *testing.T) {
		testutil.AssertNoError(t, svc.DeleteBudget(user.ID, budget.ID))
		_, err := svc.GetBudgetByID(user.ID, budget.ID)
		testutil.AssertAppError(t, err, "BUDGET_NOT_FOUND")
		testutil.AssertCount(t, db, &models.Category{}, 1, "id = ?", category.ID)
	})
}

func TestListForPeriod(t *testing.T) {
	t.Run("carryover_from_previous_period", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, testClock)
		user := testutil.CreateTestUser(t, db)
		testutil.SetPeriodStartDay(t, db, user.ID, 26)
		account := testutil.CreateTestAccount(t, db, user.ID)
		category := testutil.CreateTestCategory(t, db, user.ID, models.CategoryKindExpense)

		testutil.CreateTestBudget(t, db, user.ID, category.ID, period.New(2024, time.April), "800000", false)
		testutil.CreateTestBudget(t, db, user.ID, category.ID, period.New(2024, time.May), "1000000", true)
		// 2024-04 runs from Mar 27 to Apr 25 with a start day of 26.
		testutil.CreateTestExpense(t, db, user.ID, account.ID, category.ID, "500000", testutil.Date(2024, time.April, 10))
		// 2024-05 runs from Apr 27 to May 25.
		testutil.CreateTestExpense(t, db, user.ID, account.ID, category.ID, "1100000", testutil.Date(2024, time.May, 2))

		list, err := svc.ListForPeriod(user.ID, period.New(2024, time.May))
		testutil.AssertNoError(t, err)

		if len(list.Items) != 1 {
			t.Fatalf("expected 1 budget, got %d", len(list.Items))
		}
		item := list.Items[0]
		testutil.AssertDecimal(t, "carryover", item.CarryoverAmount, "300000")
		testutil.AssertDecimal(t, "effective limit", item.EffectiveLimit, "1300000")
		testutil.AssertDecimal(t, "spent", item.Spent, "1100000")
		testutil.AssertDecimal(t, "remaining", item.Remaining, "200000")
		if item.Status != BudgetStatusAlmostOver {
			t.Errorf("expected almost_over, got %s", item.Status)
		}
		if item.Category.ID != category.ID {
			t.Error("expected category to be joined")
		}
		if list.Summary.AlmostOver != 1 || list.Summary.Over != 0 {
			t.Errorf("unexpected summary counts: %+v", list.Summary)
		}
	})

	t.Run("stored_carryover_without_previous_row", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, testClock)
		user := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, user.ID, models.CategoryKindExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, category.ID, period.New(2024, time.June), "100", true)
		testutil.AssertNoError(t, db.Model(budget).Update("accumulated_carryover", testutil.Dec("40")).Error)

		list, err := svc.ListForPeriod(user.ID, period.New(2024, time.June))
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, "effective limit", list.Items[0].EffectiveLimit, "140")
	})

	t.Run("summary_totals", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, testClock)
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccount(t, db, user.ID)
		food := testutil.CreateTestCategory(t, db, user.ID, models.CategoryKindExpense)
		fun := testutil.CreateTestCategory(t, db, user.ID, models.CategoryKindExpense)
		march := period.New(2024, time.March)
		testutil.CreateTestBudget(t, db, user.ID, food.ID, march, "200", false)
		testutil.CreateTestBudget(t, db, user.ID, fun.ID, march, "50", false)
		// With start day 1, 2024-03 runs from Feb 2 to Feb 29 and Mar 1.
		testutil.CreateTestExpense(t, db, user.ID, account.ID, food.ID, "20", testutil.Date(2024, time.February, 10))
		testutil.CreateTestExpense(t, db, user.ID, account.ID, fun.ID, "75", testutil.Date(2024, time.February, 11))
		testutil.CreateTestExpense(t, db, user.ID, account.ID, fun.ID, "999", testutil.Date(2024, time.March, 1))

		list, err := svc.ListForPeriod(user.ID, march)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, "total limit", list.Summary.TotalLimit, "250")
		testutil.AssertDecimal(t, "total spent", list.Summary.TotalSpent, "95")
		if list.Summary.Over != 1 {
			t.Errorf("expected 1 over budget, got %d", list.Summary.Over)
		}
	})

	t.Run("empty_period", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, testClock)
		user := testutil.CreateTestUser(t, db)

		list, err := svc.ListForPeriod(user.ID, period.New(2024, time.March))
		testutil.AssertNoError(t, err)
		if len(list.Items) != 0 || list.Summary.Period != "2024-03" {
			t.Errorf("unexpected empty list: %+v", list)
		}
	})
}

func TestCopyFromPreviousPeriod(t *testing.T) {
	t.Run("inserts_and_updates", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, testClock)
		user := testutil.CreateTestUser(t, db)
		testutil.SetPeriodStartDay(t, db, user.ID, 26)
		account := testutil.CreateTestAccount(t, db, user.ID)
		groceries := testutil.CreateTestCategory(t, db, user.ID, models.CategoryKindExpense)
		transport := testutil.CreateTestCategory(t, db, user.ID, models.CategoryKindExpense)
		april := period.New(2024, time.April)
		may := period.New(2024, time.May)

		testutil.CreateTestBudget(t, db, user.ID, groceries.ID, april, "800000", true)
		testutil.CreateTestBudget(t, db, user.ID, transport.ID, april, "100000", false)
		testutil.CreateTestBudget(t, db, user.ID, transport.ID, may, "1", true)
		testutil.CreateTestExpense(t, db, user.ID, account.ID, groceries.ID, "500000", testutil.Date(2024, time.April, 10))

		count, err := svc.CopyFromPreviousPeriod(user.ID, may)
		testutil.AssertNoError(t, err)
		if count != 2 {
			t.Fatalf("expected 2 rows copied, got %d", count)
		}

		var rows []models.Budget
		testutil.AssertNoError(t, db.Where("period = ?", may.FirstDay()).Find(&rows).Error)
		if len(rows) != 2 {
			t.Fatalf("expected 2 budgets in target period, got %d", len(rows))
		}
		for _, r := range rows {
			switch r.CategoryID {
			case groceries.ID:
				testutil.AssertDecimal(t, "groceries amount", r.Amount, "800000")
				testutil.AssertDecimal(t, "groceries carryover", r.AccumulatedCarryover, "300000")
			case transport.ID:
				testutil.AssertDecimal(t, "transport amount", r.Amount, "100000")
				testutil.AssertDecimal(t, "transport carryover", r.AccumulatedCarryover, "0")
				if r.Carryover {
					t.Error("expected transport carryover flag copied as false")
				}
			}
		}
	})

	t.Run("overspend_is_floored", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, testClock)
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccount(t, db, user.ID)
		category := testutil.CreateTestCategory(t, db, user.ID, models.CategoryKindExpense)
		testutil.CreateTestBudget(t, db, user.ID, category.ID, period.New(2024, time.February), "100", true)
		// 2024-02 with start day 1 runs from Jan 2 to Feb 1.
		testutil.CreateTestExpense(t, db, user.ID, account.ID, category.ID, "180", testutil.Date(2024, time.January, 15))

		count, err := svc.CopyFromPreviousPeriod(user.ID, period.New(2024, time.March))
		testutil.AssertNoError(t, err)
		if count != 1 {
			t.Fatalf("expected 1 row copied, got %d", count)
		}

		var row models.Budget
		testutil.AssertNoError(t, db.Where("period = ?", period.New(2024, time.March).FirstDay()).First(&row).Error)
		testutil.AssertDecimal(t, "accumulated carryover", row.AccumulatedCarryover, "0")
	})

	t.Run("no_source_rows", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, testClock)
		user := testutil.CreateTestUser(t, db)

		count, err := svc.CopyFromPreviousPeriod(user.ID, period.New(2024, time.January))
		testutil.AssertNoError(t, err)
		if count != 0 {
			t.Errorf("expected 0, got %d", count)
		}
	})
}

func TestCurrentPeriod(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	user := testutil.CreateTestUser(t, db)
	testutil.SetPeriodStartDay(t, db, user.ID, 26)

	tests := []struct {
		name  string
		today time.Time
		want  string
	}{
		{"before_start_day", testutil.Date(2024, time.May, 10), "2024-04"},
		{"after_start_day", testutil.Date(2024, time.May, 27), "2024-05"},
		{"january_rolls_back_a_year", testutil.Date(2024, time.January, 3), "2023-12"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewBudgetService(db, clock.Fixed(tt.today))
			got, err := svc.CurrentPeriod(user.ID)
			testutil.AssertNoError(t, err)
			if got.String() != tt.want {
				t.Errorf("CurrentPeriod = %s, want %s", got, tt.want)
			}
		})
	}
}
