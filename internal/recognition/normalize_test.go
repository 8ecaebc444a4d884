package recognition

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"lowercase l read as one", "jte 00l2345678", "JTE0012345678"},
		{"full width folded", "ＪＴＥ１２３", "JTE123"},
		{"punctuation stripped, hyphen kept", "AJA-12.34/56", "AJA-123456"},
		{"invoice prefix becomes 8G", "BG-12", "8G-12"},
		{"confusions", "OISLBZQ", "0151820"},
		{"non ascii letters dropped", "код 42", "42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("normalizing twice equals normalizing once", prop.ForAll(
		func(s string) bool {
			once := Normalize(s)
			return Normalize(once) == once
		},
		gen.AnyString(),
	))

	properties.Property("output alphabet is upper-case digits, letters and hyphen", prop.ForAll(
		func(s string) bool {
			for _, r := range Normalize(s) {
				ok := (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-'
				if !ok {
					return false
				}
			}
			return true
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "CUST001", NormalizeCode("  cust001\n"))
	assert.Equal(t, "", NormalizeCode("   "))
}
