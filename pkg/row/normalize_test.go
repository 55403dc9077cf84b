package row

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePostalCode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"already normalized", "123-4567", "123-4567"},
		{"bare digits", "1234567", "123-4567"},
		{"full-width digits", "１２３４５６７", "123-4567"},
		{"full-width dash", "123－4567", "123-4567"},
		{"long vowel dash", "123ー4567", "123-4567"},
		{"surrounding whitespace", "  123-4567  ", "123-4567"},
		{"too short left alone", "12345", "12345"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePostalCode(tt.input))
		})
	}
}

func TestNormalizePostalCode_EquivalentForms(t *testing.T) {
	// Dashed and bare forms normalize to the same canonical value.
	assert.Equal(t, NormalizePostalCode("123-4567"), NormalizePostalCode("1234567"))
	assert.Equal(t, "123-4567", NormalizePostalCode("1234567"))
}

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, "東京都千代田区1-1", NormalizeAddress(" 東京都千代田区１－１ "))
	assert.Equal(t, "", NormalizeAddress("   "))
}

func TestValidPostalCode(t *testing.T) {
	assert.True(t, ValidPostalCode("123-4567"))
	assert.True(t, ValidPostalCode("1234567"))
	assert.False(t, ValidPostalCode("12-34567"))
	assert.False(t, ValidPostalCode("123-456"))
	assert.False(t, ValidPostalCode("abc-defg"))
	assert.False(t, ValidPostalCode(""))
}
