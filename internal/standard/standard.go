// Package standard maps extracted statement-type fields onto the canonical
// field set downstream validation and storage operate on, and derives the
// per-line values (movement, running balance, credit/debit) that only exist
// once header and lines are combined.
package standard

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/boscorat/bankparse/internal/assemble"
	"github.com/boscorat/bankparse/internal/currency"
	"github.com/boscorat/bankparse/internal/rules"
)

// Canonical field keys.
const (
	KeyAccountNumber   = "STD_ACCOUNT_NUMBER"
	KeyAccountHolder   = "STD_ACCOUNT_HOLDER"
	KeyStatementDate   = "STD_STATEMENT_DATE"
	KeyOpeningBalance  = "STD_OPENING_BALANCE"
	KeyClosingBalance  = "STD_CLOSING_BALANCE"
	KeyPaymentsIn      = "STD_PAYMENTS_IN"
	KeyPaymentsOut     = "STD_PAYMENTS_OUT"
	KeyTransactionDate = "STD_TRANSACTION_DATE"
	KeyTransactionDesc = "STD_TRANSACTION_DESC"
	KeyPaymentIn       = "STD_PAYMENT_IN"
	KeyPaymentOut      = "STD_PAYMENT_OUT"
)

const (
	SectionHeader = "header"
	SectionLines  = "lines"
)

// Header holds the standardized header values of one statement.
type Header struct {
	AccountNumber string
	AccountHolder string
	StatementDate time.Time
	// StatementDateRaw keeps the unparsed text when no date format matched;
	// reconciliation proceeds and fails naturally on the zero date.
	StatementDateRaw string
	OpeningBalance   decimal.Decimal
	ClosingBalance   decimal.Decimal
	PaymentsIn       decimal.Decimal
	PaymentsOut      decimal.Decimal
}

// Line is one standardized transaction.
type Line struct {
	TransactionNumber int
	PageNumber        int
	Date              time.Time
	DateRaw           string
	CreditDebit       string
	Description       string
	PaymentIn         decimal.Decimal
	PaymentOut        decimal.Decimal
	Movement          decimal.Decimal
	RunningBalance    decimal.Decimal
}

// MapHeader pivots the header section's records into one wide record and maps
// it onto the canonical header fields for the given statement type. A vital
// standard field with no mapping for this statement type is a configuration
// error.
func MapHeader(records []assemble.Record, rs *rules.RuleSet, statementType string) (Header, error) {
	wide := map[string]string{}
	for _, rec := range records {
		for field, value := range rec.Values {
			if value == "" {
				continue
			}
			if _, ok := wide[field]; !ok {
				wide[field] = value
			}
		}
	}

	var hdr Header
	for _, key := range rs.StandardFieldOrder {
		sf := rs.StandardFields[key]
		if sf.Section != SectionHeader {
			continue
		}
		value, err := mapValue(wide, key, sf, statementType)
		if err != nil {
			return Header{}, err
		}
		switch key {
		case KeyAccountNumber:
			hdr.AccountNumber = value.str
		case KeyAccountHolder:
			hdr.AccountHolder = value.str
		case KeyStatementDate:
			hdr.StatementDate = value.date
			hdr.StatementDateRaw = value.dateRaw
		case KeyOpeningBalance:
			hdr.OpeningBalance = value.num
		case KeyClosingBalance:
			hdr.ClosingBalance = value.num
		case KeyPaymentsIn:
			hdr.PaymentsIn = value.num
		case KeyPaymentsOut:
			hdr.PaymentsOut = value.num
		}
	}
	return hdr, nil
}

// MapLines maps each assembled transaction record onto the canonical line
// fields, then derives movement, running balance against the statement's
// opening balance, and the credit/debit flag.
func MapLines(records []assemble.Record, rs *rules.RuleSet, statementType string, openingBalance decimal.Decimal) ([]Line, error) {
	lines := make([]Line, 0, len(records))
	for _, rec := range records {
		line := Line{TransactionNumber: rec.TransactionNumber, PageNumber: rec.Page}
		for _, key := range rs.StandardFieldOrder {
			sf := rs.StandardFields[key]
			if sf.Section != SectionLines {
				continue
			}
			value, err := mapValue(rec.Values, key, sf, statementType)
			if err != nil {
				return nil, err
			}
			switch key {
			case KeyTransactionDate:
				line.Date = value.date
				line.DateRaw = value.dateRaw
			case KeyTransactionDesc:
				line.Description = value.str
			case KeyPaymentIn:
				line.PaymentIn = value.num
			case KeyPaymentOut:
				line.PaymentOut = value.num
			}
		}
		lines = append(lines, line)
	}

	running := openingBalance
	var lastDate time.Time
	for i := range lines {
		if lines[i].Date.IsZero() && !lastDate.IsZero() {
			lines[i].Date = lastDate
		} else if !lines[i].Date.IsZero() {
			lastDate = lines[i].Date
		}
		lines[i].Movement = currency.Round(lines[i].PaymentIn.Sub(lines[i].PaymentOut))
		running = currency.Round(running.Add(lines[i].Movement))
		lines[i].RunningBalance = running
		if lines[i].Movement.IsPositive() {
			lines[i].CreditDebit = "C"
		} else {
			lines[i].CreditDebit = "D"
		}
	}
	return lines, nil
}

type mapped struct {
	str     string
	num     decimal.Decimal
	date    time.Time
	dateRaw string
}

func mapValue(values map[string]string, key string, sf *rules.StandardField, statementType string) (mapped, error) {
	ref, ok := sf.Ref(statementType)
	if !ok {
		if sf.Vital {
			return mapped{}, fmt.Errorf("standard field %s for statement type %q: %w", key, statementType, rules.ErrMissingStandardField)
		}
		return mapped{}, nil
	}

	raw := ref.Default
	if ref.Field != "" {
		raw = values[ref.Field]
	}
	if ref.Terminator != "" {
		if idx := strings.Index(raw, ref.Terminator); idx >= 0 {
			raw = strings.TrimSpace(raw[:idx])
		}
	}

	switch sf.Type {
	case rules.KindNumeric:
		return mapped{num: mapNumeric(raw, ref)}, nil
	case rules.KindDate:
		if t, ok := parseDate(raw, ref.Format); ok {
			return mapped{date: t}, nil
		}
		return mapped{dateRaw: raw}, nil
	default:
		return mapped{str: raw}, nil
	}
}

func mapNumeric(raw string, ref rules.StdRef) decimal.Decimal {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		d = decimal.Zero
	}
	if ref.ExcludeNegativeValues && d.IsNegative() {
		d = decimal.Zero
	}
	if ref.ExcludePositiveValues && d.IsPositive() {
		d = decimal.Zero
	}
	return currency.Round(d.Mul(decimal.NewFromFloat(ref.Scale())))
}

// parseDate attempts the configured format; on failure it retries on the last
// three whitespace tokens, which strips a leading range prefix like
// "9 July to" from "9 July to 8 August 2025".
func parseDate(raw, format string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || format == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(format, raw); err == nil {
		return t, true
	}
	tokens := strings.Fields(raw)
	if len(tokens) > 3 {
		if t, err := time.Parse(format, strings.Join(tokens[len(tokens)-3:], " ")); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
