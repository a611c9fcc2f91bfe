// Package category resolves merchants to budget categories through a
// persisted merchant-key mapping table with user overrides.
package category

// Default is assigned to merchants with no mapping.
const Default = "Personal"

// Budget holds the 24 valid budget categories. Default ("Personal") is one of
// them.
var Budget = []string{
	"Home Electricity",
	"Home Water/Trash",
	"Home Furniture",
	"Internet",
	"Phone Bill",
	"HOA Bill",
	"Home Maintenance",
	"Car Registration",
	"Discord Subscription",
	"Spotify Subscription",
	"Amazon Prime Subscription",
	"Gym Membership",
	"Chase Sapphire Preferred Fee",
	"Costco Membership",
	"Groceries",
	"Gas",
	"Restaurants",
	"Health / Doctors",
	"Car Maintenance",
	"Pest control",
	"Landscaping",
	"Games",
	"Vacation",
	Default,
}

var budgetSet = func() map[string]bool {
	m := make(map[string]bool, len(Budget))
	for _, c := range Budget {
		m[c] = true
	}
	return m
}()

// Valid reports whether name is one of the 24 budget categories.
func Valid(name string) bool {
	return budgetSet[name]
}

// bankFallback maps a bank's own category column to a budget category for
// merchants with no explicit mapping.
var bankFallback = map[string]string{
	"Food & Drink":      "Restaurants",
	"Vehicle Services":  "Gas",
	"Health & Wellness": "Health / Doctors",
	"Groceries":         "Groceries",
	"Home":              "Home Furniture",
	"Travel":            "Vacation",
	"Automotive":        "Car Maintenance",
}

// FromBankCategory returns the fallback budget category for a bank-assigned
// category, or "" when the bank category has no fallback.
func FromBankCategory(bankCategory string) string {
	return bankFallback[bankCategory]
}
