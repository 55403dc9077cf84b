package csvio

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"github.com/wehubfusion/Minos/pkg/row"
)

func writeTemp(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.csv")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestReadFile_PlainUTF8(t *testing.T) {
	path := writeTemp(t, []byte("123-4567,東京都千代田区1-1\n530-0001,大阪府大阪市北区1-1\n"))

	records, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"123-4567", "東京都千代田区1-1"}, records[0])
}

func TestReadFile_UTF8WithBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("123-4567,東京都千代田区1-1\n")...)
	path := writeTemp(t, data)

	records, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "123-4567", records[0][0], "BOM must not leak into the first field")
}

func TestReadFile_ShiftJIS(t *testing.T) {
	encoded, _, err := transform.Bytes(japanese.ShiftJIS.NewEncoder(), []byte("123-4567,東京都千代田区1-1\n"))
	require.NoError(t, err)
	path := writeTemp(t, encoded)

	records, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"123-4567", "東京都千代田区1-1"}, records[0])
}

func TestReadFile_RaggedRecords(t *testing.T) {
	path := writeTemp(t, []byte("123-4567,住所\n123-4567\n,\n"))

	records, err := ReadFile(path)
	require.NoError(t, err, "field counts are not enforced at read time")
	require.Len(t, records, 3)
	assert.Len(t, records[0], 2)
	assert.Len(t, records[1], 1)
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestWriteResults_Roundtrip(t *testing.T) {
	rows := []row.Row{
		{LineNumber: 1, PostalCode: "123-4567", Address: "東京都千代田区1-1", Judgement: row.JudgementAvailable},
		{LineNumber: 2, PostalCode: "530-0001", Address: "大阪府大阪市北区1-1", Judgement: row.JudgementFailed, Note: "実行時エラー: boom"},
	}

	path := filepath.Join(t.TempDir(), "result.csv")
	require.NoError(t, WriteResults(path, rows))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}), "result file carries a UTF-8 BOM")

	records, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"123-4567", "東京都千代田区1-1", string(row.JudgementAvailable), ""}, records[0])
	assert.Equal(t, []string{"530-0001", "大阪府大阪市北区1-1", string(row.JudgementFailed), "実行時エラー: boom"}, records[1])
}

func TestMarshalResults_MatchesFile(t *testing.T) {
	rows := []row.Row{
		{LineNumber: 1, PostalCode: "123-4567", Address: "東京都千代田区1-1", Judgement: row.JudgementUnavailable, Note: "提供エリア外"},
	}

	path := filepath.Join(t.TempDir(), "result.csv")
	require.NoError(t, WriteResults(path, rows))
	fromFile, err := os.ReadFile(path)
	require.NoError(t, err)

	marshalled, err := MarshalResults(rows)
	require.NoError(t, err)
	assert.Equal(t, fromFile, marshalled)
}
