package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogValidate(t *testing.T) {
	out, err := execute(t, "catalog", "validate", officeCatalogDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Catalog valid: 4 product(s), 2 pricelist(s) in 1 file(s)")
	assert.Contains(t, out, "chair, desk, drawer, lamp")
}

func TestCatalogValidateJSON(t *testing.T) {
	out, err := execute(t, "catalog", "validate", officeCatalogDir, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   CatalogSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, []string{"chair", "desk", "drawer", "lamp"}, resp.Data.Products)
	assert.Equal(t, 2, resp.Data.Pricelists)
}

func TestCatalogValidateInvalid(t *testing.T) {
	dir := t.TempDir()
	src := "package catalog\n\nproduct: desk: {name: \"Desk\", list_price: 1, options: ghost: {}}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.cue"), []byte(src), 0644))

	out, err := execute(t, "catalog", "validate", dir, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeCatalog, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "ghost")

	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok, "details: %#v", resp.Error.Details)
	assert.Equal(t, "REFERENCE", details["kind"])
}

func TestCatalogValidateInvalidText(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.cue"), []byte("product: desk: {"), 0644))

	out, err := execute(t, "catalog", "validate", dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ Catalog invalid")
	assert.Contains(t, out, "Error [E006]")
}

func TestCatalogValidateMissingDir(t *testing.T) {
	_, err := execute(t, "catalog", "validate", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)
}

func TestCatalogValidateNoFiles(t *testing.T) {
	_, err := execute(t, "catalog", "validate", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNoFiles)
}

func TestFindCUEFiles(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(sub, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.cue"), []byte(""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "b.cue"), []byte(""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(""), 0644))

	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}
