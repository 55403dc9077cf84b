package row

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRecords(t *testing.T) {
	records := [][]string{
		{"123-4567", "東京都千代田区1-1"},
		{"", ""},
		{"123-4567", ""},
		{"", "大阪府大阪市北区1-1"},
		{"12345", "北海道札幌市中央区1-1"},
		{"１２３４５６７", "愛知県名古屋市中区1-1"},
	}

	rows, defective := ValidateRecords(records)
	require.Len(t, rows, 6)

	assert.Equal(t, StatusOk, rows[0].Status)
	assert.Equal(t, StatusBlank, rows[1].Status)
	assert.Equal(t, StatusMissingField, rows[2].Status)
	assert.Equal(t, StatusMissingField, rows[3].Status)
	assert.Equal(t, StatusMalformedPostalCode, rows[4].Status)
	assert.Equal(t, StatusOk, rows[5].Status, "full-width digits normalize into a valid code")

	// Blank rows keep their line number but are not defective.
	assert.Equal(t, []int{3, 4, 5}, defective)

	// Line numbers are 1-based and stable.
	for i, r := range rows {
		assert.Equal(t, i+1, r.LineNumber)
	}

	// Every row starts at NotRun.
	for _, r := range rows {
		assert.Equal(t, JudgementNotRun, r.Judgement)
	}
}

func TestValidateRecords_BlankRowStaysNotRun(t *testing.T) {
	rows, defective := ValidateRecords([][]string{{"", ""}})
	require.Len(t, rows, 1)
	assert.Equal(t, StatusBlank, rows[0].Status)
	assert.Equal(t, JudgementNotRun, rows[0].Judgement)
	assert.Empty(t, defective)
}

func TestValidateRecords_ShortRecord(t *testing.T) {
	rows, _ := ValidateRecords([][]string{{"123-4567"}})
	require.Len(t, rows, 1)
	assert.Equal(t, StatusMissingField, rows[0].Status)
	assert.Equal(t, "123-4567", rows[0].PostalCode)
}
