package ledger

import "strings"

// categoryRule maps narration/merchant keywords to a spending category.
type categoryRule struct {
	Category string
	Keywords []string
}

// categoryRules are checked in order and the first match wins, so the
// payment-rail patterns (ATM, NEFT, UPI) come before merchant names.
var categoryRules = []categoryRule{
	{Category: "cash_withdrawal", Keywords: []string{"ATM/", "CASH", "WITHDRAWAL"}},
	{Category: "transfers", Keywords: []string{"FT/", "FUND TRANSFER", "NEFT", "IMPS", "RTGS"}},
	{Category: "upi_payments", Keywords: []string{"UPI/", "PAYTM", "PHONEPE", "GPAY", "GOOGLEPAY"}},
	{Category: "groceries", Keywords: []string{"GROCERY", "SUPERMARKET", "MART", "STORE", "BIGBASKET", "DMART"}},
	{Category: "food_dining", Keywords: []string{"RESTAURANT", "CAFE", "ZOMATO", "SWIGGY", "FOOD", "DINING"}},
	{Category: "transportation", Keywords: []string{"UBER", "OLA", "RAPIDO", "PETROL", "FUEL", "TRANSPORT"}},
	{Category: "shopping", Keywords: []string{"AMAZON", "FLIPKART", "MYNTRA", "SHOPPING", "MALL"}},
	{Category: "entertainment", Keywords: []string{"NETFLIX", "SPOTIFY", "PRIME", "ENTERTAINMENT", "MOVIE", "CINEMA"}},
	{Category: "utilities", Keywords: []string{"ELECTRIC", "WATER", "GAS", "BILL", "UTILITY"}},
	{Category: "healthcare", Keywords: []string{"MEDICAL", "HOSPITAL", "PHARMACY", "DOCTOR", "HEALTH"}},
}

// Categorize resolves a category for a record the upstream categorizer left
// unlabeled, by keyword-matching the merchant name (preferred) or the bank
// narration. Returns DefaultCategory when nothing matches; the external
// categorizer may still refine the label later.
func Categorize(merchant, narration string) string {
	text := strings.ToUpper(strings.TrimSpace(merchant))
	if text == "" {
		text = strings.ToUpper(strings.TrimSpace(narration))
	}
	if text == "" {
		return DefaultCategory
	}

	for _, rule := range categoryRules {
		for _, keyword := range rule.Keywords {
			if strings.Contains(text, keyword) {
				return rule.Category
			}
		}
	}
	return DefaultCategory
}
