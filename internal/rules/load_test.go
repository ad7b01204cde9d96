package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedDefaults(t *testing.T) {
	rs, err := Load("")
	require.NoError(t, err)

	require.Contains(t, rs.Companies, "firstbridge")
	assert.Equal(t, "First Bridge Bank", rs.Companies["firstbridge"].Name)

	acct, ok := rs.Accounts["firstbridge_current"]
	require.True(t, ok)
	require.NotNil(t, acct.Company, "company reference linked")
	require.NotNil(t, acct.AccountType, "account type reference linked")
	require.NotNil(t, acct.StatementType, "statement type reference linked")
	assert.Same(t, rs.Companies["firstbridge"], acct.Company)

	// statement table keys inside rule groups resolve to shared objects
	for _, cfg := range acct.StatementType.Lines.Configs {
		if cfg.StatementTableKey != "" {
			assert.Same(t, rs.StatementTables[cfg.StatementTableKey], cfg.StatementTable)
		}
	}
}

func TestLoadPreservesDeclarationOrder(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, FileCompanies, `
zeta:
  company: Zeta Bank
alpha:
  company: Alpha Bank
`)
	writeRule(t, dir, FileAccounts, "{}\n")

	rs, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha"}, rs.CompanyOrder)
}

func TestLoadDirOverridesFallBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	// only companies overridden; accounts must still link against the embedded
	// statement types, so keep the default account wiring intact
	writeRule(t, dir, FileCompanies, `
firstbridge:
  company: Renamed Bank
`)

	rs, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "Renamed Bank", rs.Companies["firstbridge"].Name)
	assert.Contains(t, rs.StatementTypes, "firstbridge_current", "untouched categories load from embedded defaults")
}

func TestLoadUnknownReferenceFails(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, FileAccounts, `
orphan:
  account: Orphan
  company_key: nowhere
  account_type_key: current
  statement_type_key: firstbridge_current
`)

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown company "nowhere"`)
}

func TestLoadRoundTrip(t *testing.T) {
	// defaults written out and loaded back produce the same rule tree
	dir := t.TempDir()
	written, err := WriteDefaults(dir, false)
	require.NoError(t, err)
	assert.Len(t, written, 6)

	fromDir, err := Load(dir)
	require.NoError(t, err)
	embedded, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, embedded.CompanyOrder, fromDir.CompanyOrder)
	assert.Equal(t, embedded.AccountOrder, fromDir.AccountOrder)
	assert.Equal(t, embedded.StandardFieldOrder, fromDir.StandardFieldOrder)
	for key := range embedded.StatementTables {
		assert.Contains(t, fromDir.StatementTables, key)
	}
}

func TestWriteDefaultsSkipsExisting(t *testing.T) {
	dir := t.TempDir()
	custom := filepath.Join(dir, FileCompanies)
	require.NoError(t, os.WriteFile(custom, []byte("acme:\n  company: Acme\n"), 0o644))

	written, err := WriteDefaults(dir, false)
	require.NoError(t, err)
	assert.Len(t, written, 5)
	assert.NotContains(t, written, custom)

	data, err := os.ReadFile(custom)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Acme", "existing file untouched")

	written, err = WriteDefaults(dir, true)
	require.NoError(t, err)
	assert.Len(t, written, 6, "overwrite replaces everything")
}

func TestAccountsForCompany(t *testing.T) {
	rs, err := Load("")
	require.NoError(t, err)

	accounts := rs.AccountsForCompany("firstbridge")
	require.NotEmpty(t, accounts)
	for _, acct := range accounts {
		assert.Equal(t, "firstbridge", acct.CompanyKey)
	}

	assert.Empty(t, rs.AccountsForCompany("missing"))
}

func TestAccountKey(t *testing.T) {
	rs, err := Load("")
	require.NoError(t, err)

	acct := rs.Accounts["firstbridge_current"]
	assert.Equal(t, "firstbridge_current", rs.AccountKey(acct))
	assert.Equal(t, "", rs.AccountKey(&Account{}))
}

func writeRule(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
