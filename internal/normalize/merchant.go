// Package normalize turns raw bank descriptions into stable merchant names.
//
// Two outputs per description: a cleaned display string ("Trader Joes") and a
// lookup key ("traderjoes"). Category mapping and recurring grouping use the
// key so cosmetic variation between exports never fragments a merchant.
package normalize

import (
	"regexp"
	"strings"
)

// brandNames collapses well-known messy descriptors to a canonical display
// name. Checked against the uppercased description by substring.
var brandNames = []struct {
	match string
	name  string
}{
	{"AMZN", "Amazon"},
	{"AMAZON", "Amazon"},
	{"UBER", "Uber"},
	{"LYFT", "Lyft"},
	{"STARBUCKS", "Starbucks"},
	{"TRADER JOE", "Trader Joes"},
	{"WHOLEFDS", "Whole Foods"},
	{"WHOLE FOODS", "Whole Foods"},
	{"APPLE", "Apple"},
	{"NETFLIX", "Netflix"},
	{"SPOTIFY", "Spotify"},
	{"TARGET", "Target"},
	{"COSTCO", "Costco"},
	{"SHELL", "Shell"},
	{"CHEVRON", "Chevron"},
	{"IN-N-OUT", "In-N-Out"},
}

var (
	// Processor routing prefixes: "TST* BLUE BOTTLE", "SQ *COFFEE CART",
	// "PY *GYM", "PAYPAL *DIGITALOCEAN".
	processorPrefix = regexp.MustCompile(`^(TST\*|SQ \*|PY \*|PAYPAL \*|PP\*|SP \*)\s*`)

	// Trailing store-number noise: "#1234", "STORE 00329", bare digit runs,
	// and a 2-letter state code left dangling after the number is removed.
	storeNumberSuffix = regexp.MustCompile(`\s+(#\d+|STORE\s+\d+|NO\.?\s*\d+|\d{3,})$`)
	stateSuffix       = regexp.MustCompile(`\s+[A-Z]{2}$`)

	whitespace = regexp.MustCompile(`\s+`)

	nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)
)

// CleanMerchant converts a raw bank description into a display merchant name.
// "TST* BLUE BOTTLE COFF #0042 CA" -> "Blue Bottle Coff".
func CleanMerchant(description string) string {
	desc := strings.ToUpper(strings.TrimSpace(description))

	for _, b := range brandNames {
		if strings.Contains(desc, b.match) {
			return b.name
		}
	}

	desc = processorPrefix.ReplaceAllString(desc, "")
	desc = whitespace.ReplaceAllString(desc, " ")

	// A trailing state code is only noise when it follows store-number noise
	// ("COFF #0042 CA"), so strip it first, then peel number suffixes until
	// stable.
	if storeNumberSuffix.MatchString(stateSuffix.ReplaceAllString(desc, "")) {
		desc = stateSuffix.ReplaceAllString(desc, "")
	}
	for {
		trimmed := storeNumberSuffix.ReplaceAllString(desc, "")
		if trimmed == desc {
			break
		}
		desc = trimmed
	}

	desc = strings.TrimSpace(desc)
	if desc == "" {
		return "Unknown"
	}
	return titleCase(desc)
}

// Key returns the lowercase alphanumeric lookup key for a merchant display
// name. "Trader Joes" -> "traderjoes".
func Key(merchant string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(merchant), "")
}

func titleCase(upper string) string {
	words := strings.Split(strings.ToLower(upper), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
