// Package statement runs the full processing pass for one document: open,
// resolve the account, extract header and line sections, standardize,
// reconcile, and fingerprint. A Statement is created per document, mutated
// only during its own pass, and discarded once its results are merged into
// the batch output.
package statement

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/boscorat/bankparse/internal/assemble"
	"github.com/boscorat/bankparse/internal/extract"
	"github.com/boscorat/bankparse/internal/pdfio"
	"github.com/boscorat/bankparse/internal/reconcile"
	"github.com/boscorat/bankparse/internal/rules"
	"github.com/boscorat/bankparse/internal/rules/resolve"
	"github.com/boscorat/bankparse/internal/standard"
)

// Statement is the outcome of one document's processing pass.
type Statement struct {
	// ID is the content fingerprint of the document, stable across re-runs on
	// the unchanged file and used as the idempotent upsert key.
	ID string
	// AccountID identifies the account the statement belongs to, derived from
	// the resolved config and the extracted account number. Set on success.
	AccountID string
	File      string

	CompanyKey    string
	AccountKey    string
	Company       string
	Account       string
	StatementType string

	Header standard.Header
	Lines  []standard.Line
	Checks reconcile.ChecksAndBalances

	Success bool
	// RenameTarget is the canonical basename for the processed file,
	// {accountID}_{yyyymmdd}.pdf. Set on success.
	RenameTarget string
}

// Processor processes documents against a loaded rule set.
type Processor struct {
	rules  *rules.RuleSet
	logger *slog.Logger
}

func NewProcessor(rs *rules.RuleSet, logger *slog.Logger) *Processor {
	return &Processor{rules: rs, logger: logger}
}

// ProcessFile opens a PDF and runs the full pass over it.
func (p *Processor) ProcessFile(path, companyHint, accountHint string) (*Statement, error) {
	doc, err := pdfio.Open(path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()
	return p.Process(doc, path, companyHint, accountHint)
}

// Process runs the full pass over an open document.
func (p *Processor) Process(doc pdfio.Document, name, companyHint, accountHint string) (*Statement, error) {
	logger := p.logger.With("file", name)
	stmt := &Statement{File: name, ID: Fingerprint(doc)}

	acct, acctKey, err := resolve.Account(doc, p.rules, companyHint, accountHint)
	if err != nil {
		return nil, fmt.Errorf("resolving account: %w", err)
	}
	stmt.CompanyKey = acct.CompanyKey
	stmt.AccountKey = acctKey
	stmt.Company = acct.Company.Name
	stmt.Account = acct.Name
	stmt.StatementType = acct.StatementType.Name
	logger = logger.With("account", acctKey)
	logger.Debug("account resolved", "statement_type", stmt.StatementType)

	headerResults := p.runSection(doc, acct.StatementType.Header, standard.SectionHeader, acct.ExcludeLastNPages)
	headerRecords := assemble.Pivot(headerResults)
	hasHeader := false
	for _, r := range headerResults {
		if r.Success {
			hasHeader = true
			break
		}
	}

	lineRecords := p.runLines(doc, acct)

	stmt.Header, err = standard.MapHeader(headerRecords, p.rules, stmt.StatementType)
	if err != nil {
		return nil, fmt.Errorf("standardizing header: %w", err)
	}
	stmt.Lines, err = standard.MapLines(lineRecords, p.rules, stmt.StatementType, stmt.Header.OpeningBalance)
	if err != nil {
		return nil, fmt.Errorf("standardizing lines: %w", err)
	}

	stmt.Checks = reconcile.Validate(stmt.Header, stmt.Lines, hasHeader)
	stmt.Success = stmt.Checks.Success

	if stmt.Success {
		acctNumber := strings.ReplaceAll(stmt.Header.AccountNumber, " ", "")
		stmt.AccountID = fmt.Sprintf("%s_%s_%s", acct.CompanyKey, acct.AccountTypeKey, acctNumber)
		stmt.RenameTarget = fmt.Sprintf("%s_%s.pdf", stmt.AccountID, stmt.Header.StatementDate.Format("20060102"))
		logger.Info("statement reconciled", "transactions", len(stmt.Lines))
	} else {
		logger.Warn("statement failed reconciliation",
			"zero_transaction", stmt.Checks.ZeroTransaction,
			"bal_payments_in", stmt.Checks.BalPaymentsIn,
			"bal_payments_out", stmt.Checks.BalPaymentsOut,
			"bal_movement", stmt.Checks.BalMovement,
			"bal_closing", stmt.Checks.BalClosing,
		)
	}
	return stmt, nil
}

// runSection executes every config of one rule group and concatenates the
// field results.
func (p *Processor) runSection(doc pdfio.Document, group rules.ConfigGroup, section string, excludeLastN int) []extract.FieldResult {
	var results []extract.FieldResult
	for _, cfg := range group.Configs {
		results = append(results, extract.Run(doc, cfg, section, excludeLastN)...)
	}
	return results
}

// runLines executes the lines rule group. Table configs with a transaction
// spec are assembled into transaction records; anything else contributes
// pivoted rows as-is.
func (p *Processor) runLines(doc pdfio.Document, acct *rules.Account) []assemble.Record {
	var records []assemble.Record
	offset := 0
	for _, cfg := range acct.StatementType.Lines.Configs {
		results := extract.Run(doc, cfg, standard.SectionLines, acct.ExcludeLastNPages)
		var recs []assemble.Record
		if cfg.StatementTable != nil && cfg.StatementTable.TransactionSpec != nil {
			recs = assemble.Transactions(results, cfg.StatementTable.TransactionSpec)
		} else {
			// pivoted rows carry no transaction number; each row is its own
			// transaction so the store's (statement, number) key stays unique
			recs = assemble.Pivot(results)
			for i := range recs {
				recs[i].TransactionNumber = i + 1
			}
		}
		// transaction numbers restart per config; renumber into one sequence
		for i := range recs {
			recs[i].TransactionNumber += offset
		}
		if n := len(recs); n > 0 {
			offset = recs[n-1].TransactionNumber
		}
		records = append(records, recs...)
	}
	return records
}

// Fingerprint hashes the first page's text. Statement content is stable for
// an unchanged file, so re-processing produces the same identity.
func Fingerprint(doc pdfio.Document) string {
	var text string
	if doc.PageCount() > 0 {
		if page := doc.Page(1); page != nil {
			text = page.Text()
		}
	}
	sum := sha512.Sum512([]byte(text))
	return hex.EncodeToString(sum[:])
}
