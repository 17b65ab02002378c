package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestQuartersCommand(t *testing.T) {
	chdir(t, t.TempDir())

	out, _, err := run(t, "quarters", "2023", "-o", "json")
	require.NoError(t, err)

	var rows []quarterRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 4)
	assert.Equal(t, "JFM-2023", rows[0].Key)
	assert.Equal(t, "2023-01-05", rows[0].Start)
	assert.Equal(t, "2024-01-04", rows[3].End)

	out, _, err = run(t, "quarters", "2024")
	require.NoError(t, err)
	assert.Contains(t, out, "OND-2024")

	_, _, err = run(t, "quarters", "abc")
	assert.Error(t, err)
}

func TestAMCCommand_JSONToCSV(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	input := filepath.Join(dir, "products.json")
	require.NoError(t, os.WriteFile(input, []byte(`{"products": [
		{"productName": "Router", "uatDate": "2020-01-01", "invoiceValue": 100000},
		{"productName": "Broken", "uatDate": "2020-01-01", "invoiceValue": 0}
	]}`), 0o644))

	out, stderr, err := run(t, "amc", input, "--format", "csv", "--out", "-", "--gst", "0")
	require.NoError(t, err)
	assert.Contains(t, stderr, "processed 2/2")

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	header := records[0]
	jfm := -1
	for i, h := range header {
		if h == "JFM-2023" {
			jfm = i
		}
	}
	require.NotEqual(t, -1, jfm)
	assert.Equal(t, "2000.00", records[1][jfm])
	assert.NotEmpty(t, records[2][len(header)-1])
}

func TestAMCCommand_InvalidDateKeepsOtherRows(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	input := filepath.Join(dir, "products.json")
	require.NoError(t, os.WriteFile(input, []byte(`[
		{"id": "p1", "productName": "Router", "uatDate": "2020-01-01", "invoiceValue": 100000},
		{"id": "p2", "productName": "Switch", "uatDate": "31-02-2020", "invoiceValue": 50000}
	]`), 0o644))

	out, stderr, err := run(t, "amc", input, "--format", "csv", "--out", "-")
	require.NoError(t, err)
	assert.Contains(t, stderr, "successful: 1  errors: 1")
	assert.Contains(t, out, "invalid UAT date format: 31-02-2020")
}

func TestWarrantyCommand_WritesFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	input := filepath.Join(dir, "items.json")
	require.NoError(t, os.WriteFile(input, []byte(`[
		{"itemName": "Camera", "cost": 120000, "uatDate": "2023-01-05", "warrantyYears": 3}
	]`), 0o644))
	dest := filepath.Join(dir, "warranty.xlsx")

	_, stderr, err := run(t, "warranty", input, "--out", dest, "-o", "json")
	require.NoError(t, err)

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
	assert.Contains(t, stderr, `"successful": 1`)
}

func TestRootFlagValidation(t *testing.T) {
	chdir(t, t.TempDir())

	_, _, err := run(t, "quarters", "2023", "--gst", "1.5")
	assert.Error(t, err)

	_, _, err = run(t, "quarters", "2023", "-o", "yaml")
	assert.Error(t, err)
}

// chdir changes the working directory for the duration of the test,
// mirroring testing.T.Chdir (go1.24+) on older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
