package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkenya/hazina/internal/common"
)

func writeCatalogue(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewServiceLoadsCatalogue(t *testing.T) {
	path := writeCatalogue(t, `
[[sources]]
key = "treasury"
name = "The National Treasury"
country = "KE"
base_url = "https://www.treasury.go.ke"
seed_urls = ["https://www.treasury.go.ke/budget/"]
doc_type_hints = ["BUDGET", "REPORT"]
page_bound = 10
enabled = true

[[sources]]
key = "cob"
name = "Office of the Controller of Budget"
country = "KE"
base_url = "https://cob.go.ke"
seed_urls = ["https://cob.go.ke/reports/consolidated-county-budget-implementation-review-reports/"]
doc_type_hints = ["REPORT"]
page_bound = 8
enabled = false
`)

	svc, err := NewService(path, common.GetLogger())
	require.NoError(t, err)
	require.Equal(t, 2, svc.Len())

	treasury := svc.Get("treasury")
	require.NotNil(t, treasury)
	assert.Equal(t, "https://www.treasury.go.ke", treasury.BaseURL)
	assert.Equal(t, 10, treasury.PageBound)

	assert.Equal(t, []string{"cob", "treasury"}, svc.Keys())

	enabled := svc.Enabled()
	require.Len(t, enabled, 1)
	assert.Equal(t, "treasury", enabled[0].Key)
}

func TestNewServiceMissingFileYieldsEmptyRegistry(t *testing.T) {
	svc, err := NewService(filepath.Join(t.TempDir(), "absent.toml"), common.GetLogger())
	require.NoError(t, err, "missing catalogue should not be an error")
	assert.Equal(t, 0, svc.Len())
	assert.Nil(t, svc.Get("treasury"))
}

func TestNewServiceRejectsDuplicateKey(t *testing.T) {
	path := writeCatalogue(t, `
[[sources]]
key = "treasury"
name = "A"
country = "KE"
base_url = "https://www.treasury.go.ke"
seed_urls = ["https://www.treasury.go.ke/budget/"]
enabled = true

[[sources]]
key = "treasury"
name = "B"
country = "KE"
base_url = "https://www.treasury.go.ke"
seed_urls = ["https://www.treasury.go.ke/budget/"]
enabled = true
`)

	_, err := NewService(path, common.GetLogger())
	assert.Error(t, err, "duplicate source key must be rejected")
}

func TestNewServiceRejectsRelativeSeed(t *testing.T) {
	path := writeCatalogue(t, `
[[sources]]
key = "treasury"
name = "The National Treasury"
country = "KE"
base_url = "https://www.treasury.go.ke"
seed_urls = ["/budget/"]
enabled = true
`)

	_, err := NewService(path, common.GetLogger())
	assert.Error(t, err, "relative seed URL must be rejected")
}
