// Package resolve picks the account whose rules apply to a document. Without
// hints every company's discriminator rule is probed against the document in
// declaration order; the first company that matches is searched the same way
// for a matching account. Declaration order is significant: the first match
// wins and no further candidates are tried.
package resolve

import (
	"fmt"

	"github.com/boscorat/bankparse/internal/extract"
	"github.com/boscorat/bankparse/internal/pdfio"
	"github.com/boscorat/bankparse/internal/rules"
)

// Account resolves the account for a document. An account hint bypasses
// probing entirely; a company hint restricts the search to that company's
// accounts. Returns the account and the key it was declared under.
func Account(doc pdfio.Document, rs *rules.RuleSet, companyHint, accountHint string) (*rules.Account, string, error) {
	if accountHint != "" {
		acct, ok := rs.Accounts[accountHint]
		if !ok {
			return nil, "", fmt.Errorf("account %q: %w", accountHint, rules.ErrUnknownAccount)
		}
		return acct, accountHint, nil
	}

	if companyHint != "" {
		if _, ok := rs.Companies[companyHint]; !ok {
			return nil, "", fmt.Errorf("company %q: %w", companyHint, rules.ErrUnknownAccount)
		}
		return probeAccounts(doc, rs, companyHint)
	}

	for _, companyKey := range rs.CompanyOrder {
		company := rs.Companies[companyKey]
		if company.Config == nil || !probe(doc, *company.Config) {
			continue
		}
		return probeAccounts(doc, rs, companyKey)
	}
	return nil, "", fmt.Errorf("no company discriminator matched: %w", rules.ErrUnresolvedAccount)
}

// probeAccounts tries each of the company's accounts in declaration order.
func probeAccounts(doc pdfio.Document, rs *rules.RuleSet, companyKey string) (*rules.Account, string, error) {
	for _, acctKey := range rs.AccountOrder {
		acct := rs.Accounts[acctKey]
		if acct.CompanyKey != companyKey {
			continue
		}
		if probe(doc, acct.Config) {
			return acct, acctKey, nil
		}
	}
	return nil, "", fmt.Errorf("no account discriminator matched for company %q: %w", companyKey, rules.ErrUnresolvedAccount)
}

// probe runs a discriminator rule and reports whether it produced any
// successful result.
func probe(doc pdfio.Document, cfg rules.Config) bool {
	for _, r := range extract.Run(doc, cfg, "discriminator", 0) {
		if r.Success {
			return true
		}
	}
	return false
}
