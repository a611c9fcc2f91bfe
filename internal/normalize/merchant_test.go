package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanMerchant_RealStrings(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"STARBUCKS STORE 00329 CA", "Starbucks"},
		{"AMZN Mktp US*2A1BC3D40", "Amazon"},
		{"AMAZON.COM*M12AB34C5", "Amazon"},
		{"TST* BLUE BOTTLE COFF #0042 CA", "Blue Bottle Coff"},
		{"SQ *CORNER COFFEE CART", "Corner Coffee Cart"},
		{"PAYPAL *DIGITALOCEAN", "Digitalocean"},
		{"TRADER JOE'S #552", "Trader Joes"},
		{"WHOLEFDS LMT 10155", "Whole Foods"},
		{"NETFLIX.COM", "Netflix"},
		{"UBER   *EATS PENDING", "Uber"},
		{"SHELL OIL 57444212345", "Shell"},
		{"LOCAL HARDWARE #88", "Local Hardware"},
		{"CITY  OF  SPRINGFIELD   UTIL", "City Of Springfield Util"},
		{"PY *IRON GYM 0923", "Iron Gym"},
		{"DENTAL ASSOCIATES 4411 TX", "Dental Associates"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanMerchant(tt.raw), "raw=%q", tt.raw)
	}
}

func TestCleanMerchant_Empty(t *testing.T) {
	assert.Equal(t, "Unknown", CleanMerchant(""))
	assert.Equal(t, "Unknown", CleanMerchant("   "))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "traderjoes", Key("Trader Joes"))
	assert.Equal(t, "innout", Key("In-N-Out"))
	assert.Equal(t, "bluebottlecoff", Key("Blue Bottle Coff"))
	assert.Equal(t, "", Key("---"))
}

func TestKey_CosmeticVariantsCollide(t *testing.T) {
	a := Key(CleanMerchant("TST* BLUE BOTTLE COFF #0042 CA"))
	b := Key(CleanMerchant("TST*BLUE BOTTLE COFF #0107 CA"))
	assert.Equal(t, a, b)
}
