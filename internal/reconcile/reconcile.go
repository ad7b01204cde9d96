// Package reconcile validates a statement's extracted data: the four
// checks-and-balances comparing header-stated totals against line-derived
// sums, and the overall success verdict that gates whether the statement's
// data is merged as confirmed.
package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/boscorat/bankparse/internal/currency"
	"github.com/boscorat/bankparse/internal/standard"
)

// ChecksAndBalances is the reconciliation record of one statement, produced
// exactly once after header and line extraction complete.
type ChecksAndBalances struct {
	HasHeader bool
	HasLines  bool

	// header-stated figures
	OpeningBalance decimal.Decimal
	ClosingBalance decimal.Decimal
	PaymentsIn     decimal.Decimal
	PaymentsOut    decimal.Decimal
	// derived from the header figures
	StatementMovement decimal.Decimal
	BalanceOfPayments decimal.Decimal

	// summed from the extracted lines
	LinePaymentsIn      decimal.Decimal
	LinePaymentsOut     decimal.Decimal
	LineMovement        decimal.Decimal
	FinalRunningBalance decimal.Decimal

	BalPaymentsIn  bool
	BalPaymentsOut bool
	BalMovement    bool
	BalClosing     bool

	// ZeroTransaction marks a header-only statement: all stated and summed
	// payment totals are zero, so there is nothing to reconcile strictly.
	ZeroTransaction bool

	Success bool
}

// Validate builds the checks-and-balances record for one statement.
func Validate(hdr standard.Header, lines []standard.Line, hasHeader bool) ChecksAndBalances {
	cab := ChecksAndBalances{
		HasHeader:      hasHeader,
		HasLines:       len(lines) > 0,
		OpeningBalance: hdr.OpeningBalance,
		ClosingBalance: hdr.ClosingBalance,
		PaymentsIn:     hdr.PaymentsIn,
		PaymentsOut:    hdr.PaymentsOut,
	}
	cab.StatementMovement = currency.Round(hdr.ClosingBalance.Sub(hdr.OpeningBalance))
	cab.BalanceOfPayments = currency.Round(hdr.PaymentsIn.Sub(hdr.PaymentsOut))

	cab.FinalRunningBalance = hdr.OpeningBalance
	for _, line := range lines {
		cab.LinePaymentsIn = cab.LinePaymentsIn.Add(line.PaymentIn)
		cab.LinePaymentsOut = cab.LinePaymentsOut.Add(line.PaymentOut)
		cab.LineMovement = cab.LineMovement.Add(line.Movement)
		cab.FinalRunningBalance = line.RunningBalance
	}
	cab.LinePaymentsIn = currency.Round(cab.LinePaymentsIn)
	cab.LinePaymentsOut = currency.Round(cab.LinePaymentsOut)
	cab.LineMovement = currency.Round(cab.LineMovement)

	cab.ZeroTransaction = hdr.PaymentsIn.Add(hdr.PaymentsOut).
		Add(cab.LinePaymentsIn).Add(cab.LinePaymentsOut).IsZero()

	cab.BalPaymentsIn = hdr.PaymentsIn.Equal(cab.LinePaymentsIn)
	cab.BalPaymentsOut = hdr.PaymentsOut.Equal(cab.LinePaymentsOut)
	cab.BalMovement = cab.StatementMovement.Equal(cab.LineMovement) &&
		cab.LineMovement.Equal(cab.BalanceOfPayments)
	cab.BalClosing = hdr.ClosingBalance.Equal(cab.FinalRunningBalance) || cab.ZeroTransaction

	cab.Success = cab.verdict()
	return cab
}

// verdict applies the document-level success gate: a zero-transaction
// statement passes outright; otherwise both sections must have produced rows
// and all four checks must hold.
func (cab ChecksAndBalances) verdict() bool {
	if cab.ZeroTransaction {
		return true
	}
	if !cab.HasHeader || !cab.HasLines {
		return false
	}
	return cab.BalPaymentsIn && cab.BalPaymentsOut && cab.BalMovement && cab.BalClosing
}
