package fetcher

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func buildWorkbook(t *testing.T, sheets map[string][][]string, order ...string) *xlsx.File {
	t.Helper()
	f := xlsx.NewFile()
	for _, name := range order {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range sheets[name] {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				row.AddCell().SetString(cellData)
			}
		}
	}
	return f
}

func createTestXLSX(t *testing.T, sheets map[string][][]string, order ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "leads.xlsx")
	require.NoError(t, buildWorkbook(t, sheets, order...).Save(path))
	return path
}

func TestReadXLSX_FirstSheet(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Leads": {
			{"Email", "Full Name", "City"},
			{"jane@x.io", "Jane Doe", "Austin"},
		},
	}, "Leads")

	rows, err := ReadXLSX(path, XLSXOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Email", "Full Name", "City"}, rows[0])
	assert.Equal(t, []string{"jane@x.io", "Jane Doe", "Austin"}, rows[1])
}

func TestReadXLSX_SheetSelection(t *testing.T) {
	sheets := map[string][][]string{
		"Archive": {{"old"}},
		"Current": {{"Email"}, {"sam@x.io"}},
	}
	path := createTestXLSX(t, sheets, "Archive", "Current")

	byName, err := ReadXLSX(path, XLSXOptions{SheetName: "Current"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Email"}, {"sam@x.io"}}, byName)

	byIndex, err := ReadXLSX(path, XLSXOptions{SheetIndex: 1})
	require.NoError(t, err)
	assert.Equal(t, byName, byIndex)
}

func TestReadXLSX_Errors(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{"Leads": {{"a"}}}, "Leads")

	_, err := ReadXLSX(path, XLSXOptions{SheetName: "Missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, err = ReadXLSX(path, XLSXOptions{SheetIndex: 5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")

	_, err = ReadXLSX(filepath.Join(t.TempDir(), "missing.xlsx"), XLSXOptions{})
	require.Error(t, err)
}

func TestReadXLSXBytes(t *testing.T) {
	f := buildWorkbook(t, map[string][][]string{
		"Leads": {{"Email"}, {"jane@x.io"}},
	}, "Leads")
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	rows, err := ReadXLSXBytes(buf.Bytes(), XLSXOptions{})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Email"}, {"jane@x.io"}}, rows)

	_, err = ReadXLSXBytes([]byte("not a workbook"), XLSXOptions{})
	require.Error(t, err)
}
