package server

import (
	"fmt"
	"net/http"
	"testing"
)

func TestBudgetFlow_SpendAndCopy(t *testing.T) {
	app := setupApp(t)
	token, _ := app.registerUser(t, "budget@test.com", "password123")

	cat := app.mustRequest(t, "POST", "/api/v1/categories", `{"name":"Groceries","kind":"expense"}`, token, http.StatusCreated)
	categoryID := cat["category"].(map[string]interface{})["id"].(string)
	accountID := app.createAccount(t, token, "Checking", "1000")

	created := app.mustRequest(t, "POST", "/api/v1/budgets",
		fmt.Sprintf(`{"category_id":%q,"period":"2024-05","amount":"200","carryover":true}`, categoryID),
		token, http.StatusCreated)
	budgetID := created["budget"].(map[string]interface{})["id"].(string)

	rec := app.request("POST", "/api/v1/budgets",
		fmt.Sprintf(`{"category_id":%q,"period":"2024-05","amount":"300"}`, categoryID), token)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected duplicate budget to be rejected with 400, got %d", rec.Code)
	}

	for _, day := range []string{"2024-05-02", "2024-05-18", "2024-06-01"} {
		app.mustRequest(t, "POST", "/api/v1/transactions",
			fmt.Sprintf(`{"account_id":%q,"category_id":%q,"type":"expense","amount":"70","occurred_at":%q}`, accountID, categoryID, day),
			token, http.StatusCreated)
	}

	view := app.mustRequest(t, "GET", "/api/v1/budgets/"+budgetID, "", token, http.StatusOK)["budget"].(map[string]interface{})
	assertDecimal(t, "spent", decimalField(t, view, "spent"), "140")
	assertDecimal(t, "remaining", decimalField(t, view, "remaining"), "60")
	if view["status"] != "ok" {
		t.Errorf("expected status ok, got %v", view["status"])
	}

	// Current period defaults from the clock.
	list := app.mustRequest(t, "GET", "/api/v1/budgets", "", token, http.StatusOK)
	summary := list["summary"].(map[string]interface{})
	if summary["period"] != "2024-05" {
		t.Errorf("expected current period 2024-05, got %v", summary["period"])
	}
	assertDecimal(t, "total spent", decimalField(t, summary, "total_spent"), "140")

	copied := app.mustRequest(t, "POST", "/api/v1/budgets/copy", `{"period":"2024-06"}`, token, http.StatusOK)
	if copied["copied"] != float64(1) {
		t.Fatalf("expected 1 budget copied, got %v", copied["copied"])
	}

	june := app.mustRequest(t, "GET", "/api/v1/budgets?period=2024-06", "", token, http.StatusOK)
	items := june["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("expected 1 budget in June, got %d", len(items))
	}
	item := items[0].(map[string]interface{})
	assertDecimal(t, "june carryover", decimalField(t, item, "carryover_amount"), "60")
	assertDecimal(t, "june effective limit", decimalField(t, item, "effective_limit"), "260")
	assertDecimal(t, "june spent", decimalField(t, item, "spent"), "70")
}
