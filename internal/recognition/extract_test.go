package recognition

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "spaced carrier code",
			text: "J T E 0 0 1 2 3 4 5 6 7 8",
			want: []string{"JTE0012345678"},
		},
		{
			name: "digit run between words",
			text: "Invoice 1234567890123 Thank you",
			want: []string{"1234567890123"},
		},
		{
			name: "invoice prefix matched after normalization",
			text: "Tracking: BG-123456789",
			want: []string{"8G-123456789"},
		},
		{
			name: "grouped digits after carrier prefix",
			text: "AJA 0012 345678",
			want: []string{"AJA0012345678"},
		},
		{
			name: "codes on separate lines are not fused",
			text: "JTE0012345678\nSender: Dubai",
			want: []string{"JTE0012345678"},
		},
		{
			name: "too short digit run",
			text: "Tel 12345",
			want: nil,
		},
		{
			name: "blank",
			text: " \n\t ",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.text))
		})
	}
}

func TestExtract_Deduplicates(t *testing.T) {
	got := Extract("JTE0012345678\nJTE0012345678\njte0012345678")
	assert.Equal(t, []string{"JTE0012345678"}, got)
}

func TestExtract_KeepsFirstSeenOrder(t *testing.T) {
	got := Extract("1234567890123\nAJA12345678")
	require.Len(t, got, 2)
	assert.Equal(t, "1234567890123", got[0], "lines are searched top to bottom")
	assert.Equal(t, "AJA12345678", got[1])
}

func TestExtract_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("extraction is deterministic", prop.ForAll(
		func(s string) bool {
			return assert.ObjectsAreEqual(Extract(s), Extract(s))
		},
		gen.AnyString(),
	))

	properties.Property("candidates are normalized and unique", prop.ForAll(
		func(s string) bool {
			seen := map[string]bool{}
			for _, c := range Extract(s) {
				if Normalize(c) != c || seen[c] {
					return false
				}
				seen[c] = true
			}
			return true
		},
		gen.AnyString(),
	))

	properties.Property("a planted carrier code is always found", prop.ForAll(
		func(digits string) bool {
			code := "JTE" + digits
			for _, c := range Extract("Ship to\n" + code + "\nThanks") {
				if c == code {
					return true
				}
			}
			return false
		},
		gen.NumString().SuchThat(func(s string) bool { return len(s) >= 6 }),
	))

	properties.TestingRun(t)
}
