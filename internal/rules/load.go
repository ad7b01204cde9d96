package rules

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed defaults/*.yaml
var defaultsFS embed.FS

// Category file names, one per rule category.
const (
	FileCompanies       = "companies.yaml"
	FileAccountTypes    = "account_types.yaml"
	FileAccounts        = "accounts.yaml"
	FileStatementTypes  = "statement_types.yaml"
	FileStatementTables = "statement_tables.yaml"
	FileStandardFields  = "standard_fields.yaml"
)

var categoryFiles = []string{
	FileCompanies,
	FileAccountTypes,
	FileAccounts,
	FileStatementTypes,
	FileStatementTables,
	FileStandardFields,
}

// RuleSet is the fully loaded and linked rule tree. The maps are keyed by the
// stable config keys; the order slices preserve declaration order, which is
// significant for discriminator probing (first match wins).
type RuleSet struct {
	Companies       map[string]*Company
	AccountTypes    map[string]*AccountType
	Accounts        map[string]*Account
	StatementTypes  map[string]*StatementType
	StatementTables map[string]*StatementTable
	StandardFields  map[string]*StandardField

	CompanyOrder       []string
	AccountOrder       []string
	StandardFieldOrder []string
}

// Load reads all rule category files and returns the linked rule tree. Each
// category is read from dir when the file exists there, falling back to the
// embedded defaults otherwise. Pass an empty dir to load defaults only.
func Load(dir string) (*RuleSet, error) {
	rs := &RuleSet{
		Companies:       make(map[string]*Company),
		AccountTypes:    make(map[string]*AccountType),
		Accounts:        make(map[string]*Account),
		StatementTypes:  make(map[string]*StatementType),
		StatementTables: make(map[string]*StatementTable),
		StandardFields:  make(map[string]*StandardField),
	}

	for _, name := range categoryFiles {
		data, err := readCategory(dir, name)
		if err != nil {
			return nil, err
		}
		if err := rs.decodeCategory(name, data); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}

	if err := rs.link(); err != nil {
		return nil, err
	}
	return rs, nil
}

func readCategory(dir, name string) ([]byte, error) {
	if dir != "" {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err == nil {
			return data, nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
	}
	data, err := defaultsFS.ReadFile("defaults/" + name)
	if err != nil {
		return nil, fmt.Errorf("reading embedded default %s: %w", name, err)
	}
	return data, nil
}

// decodeCategory unmarshals one category file. Files are a top-level mapping
// of key -> object; decoding goes through yaml.Node so declaration order is
// preserved for the order slices.
func (rs *RuleSet) decodeCategory(name string, data []byte) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	if len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("expected a top-level mapping, got %v", root.Kind)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		value := root.Content[i+1]

		switch name {
		case FileCompanies:
			var c Company
			if err := value.Decode(&c); err != nil {
				return fmt.Errorf("company %q: %w", key, err)
			}
			rs.Companies[key] = &c
			rs.CompanyOrder = append(rs.CompanyOrder, key)
		case FileAccountTypes:
			var at AccountType
			if err := value.Decode(&at); err != nil {
				return fmt.Errorf("account type %q: %w", key, err)
			}
			rs.AccountTypes[key] = &at
		case FileAccounts:
			var a Account
			if err := value.Decode(&a); err != nil {
				return fmt.Errorf("account %q: %w", key, err)
			}
			rs.Accounts[key] = &a
			rs.AccountOrder = append(rs.AccountOrder, key)
		case FileStatementTypes:
			var st StatementType
			if err := value.Decode(&st); err != nil {
				return fmt.Errorf("statement type %q: %w", key, err)
			}
			rs.StatementTypes[key] = &st
		case FileStatementTables:
			var tbl StatementTable
			if err := value.Decode(&tbl); err != nil {
				return fmt.Errorf("statement table %q: %w", key, err)
			}
			rs.StatementTables[key] = &tbl
		case FileStandardFields:
			var sf StandardField
			if err := value.Decode(&sf); err != nil {
				return fmt.Errorf("standard field %q: %w", key, err)
			}
			rs.StandardFields[key] = &sf
			rs.StandardFieldOrder = append(rs.StandardFieldOrder, key)
		}
	}
	return nil
}

// link resolves cross-references: statement table keys inside statement type
// rule groups, and the company/account-type/statement-type keys on accounts.
// The rule tree stays an arena of shared objects addressed by key; no object
// holds a back-reference to its parent.
func (rs *RuleSet) link() error {
	for key, st := range rs.StatementTypes {
		for _, group := range []*ConfigGroup{&st.Header, &st.Lines} {
			for i := range group.Configs {
				cfg := &group.Configs[i]
				if cfg.StatementTableKey == "" {
					continue
				}
				tbl, ok := rs.StatementTables[cfg.StatementTableKey]
				if !ok {
					return fmt.Errorf("statement type %q: unknown statement table %q", key, cfg.StatementTableKey)
				}
				cfg.StatementTable = tbl
			}
		}
	}

	for key, acct := range rs.Accounts {
		company, ok := rs.Companies[acct.CompanyKey]
		if !ok {
			return fmt.Errorf("account %q: unknown company %q", key, acct.CompanyKey)
		}
		acct.Company = company

		at, ok := rs.AccountTypes[acct.AccountTypeKey]
		if !ok {
			return fmt.Errorf("account %q: unknown account type %q", key, acct.AccountTypeKey)
		}
		acct.AccountType = at

		st, ok := rs.StatementTypes[acct.StatementTypeKey]
		if !ok {
			return fmt.Errorf("account %q: unknown statement type %q", key, acct.StatementTypeKey)
		}
		acct.StatementType = st
	}
	return nil
}

// AccountsForCompany returns the accounts referencing a company key, in
// declaration order.
func (rs *RuleSet) AccountsForCompany(companyKey string) []*Account {
	var accounts []*Account
	for _, key := range rs.AccountOrder {
		if rs.Accounts[key].CompanyKey == companyKey {
			accounts = append(accounts, rs.Accounts[key])
		}
	}
	return accounts
}

// AccountKey returns the key an account was declared under, or "" when the
// account is not part of this rule set.
func (rs *RuleSet) AccountKey(acct *Account) string {
	for key, a := range rs.Accounts {
		if a == acct {
			return key
		}
	}
	return ""
}

// WriteDefaults copies the embedded default rule files into dir, creating it
// if needed. Existing files are left untouched unless overwrite is set.
// Returns the paths actually written.
func WriteDefaults(dir string, overwrite bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating config dir: %w", err)
	}

	var written []string
	for _, name := range categoryFiles {
		dst := filepath.Join(dir, name)
		if !overwrite {
			if _, err := os.Stat(dst); err == nil {
				continue
			}
		}
		data, err := defaultsFS.ReadFile("defaults/" + name)
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", name, err)
		}
		written = append(written, dst)
	}
	return written, nil
}
