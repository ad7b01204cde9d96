package export

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/boscorat/bankparse/internal/reconcile"
	"github.com/boscorat/bankparse/internal/standard"
	"github.com/boscorat/bankparse/internal/statement"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleStatement() *statement.Statement {
	return &statement.Statement{
		ID:            "abc123",
		AccountID:     "firstbridge_current_12345678",
		Company:       "First Bridge Bank",
		Account:       "First Bridge Current",
		StatementType: "firstbridge_current",
		Header: standard.Header{
			StatementDate:  time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
			OpeningBalance: dec("100.00"),
			ClosingBalance: dec("150.00"),
			PaymentsIn:     dec("60.00"),
			PaymentsOut:    dec("10.00"),
		},
		Lines: []standard.Line{
			{
				TransactionNumber: 1, PageNumber: 1,
				Date:        time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
				CreditDebit: "D", Description: "CARD PAYMENT",
				PaymentIn: dec("0"), PaymentOut: dec("10.00"),
				Movement: dec("-10.00"), RunningBalance: dec("90.00"),
			},
			{
				TransactionNumber: 2, PageNumber: 1,
				Date:        time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC),
				CreditDebit: "C", Description: "SALARY",
				PaymentIn: dec("60.00"), PaymentOut: dec("0"),
				Movement: dec("60.00"), RunningBalance: dec("150.00"),
			},
		},
		Checks: reconcile.ChecksAndBalances{
			Success: true, BalPaymentsIn: true, BalPaymentsOut: true,
			BalMovement: true, BalClosing: true,
			StatementMovement:   dec("50.00"),
			FinalRunningBalance: dec("150.00"),
		},
		Success: true,
	}
}

func TestWriteCSV(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteCSV(dir, []*statement.Statement{sampleStatement()}))

	heads, err := os.ReadFile(filepath.Join(dir, "statement_heads.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(heads), "id_statement,id_account,company")
	assert.Contains(t, string(heads), "abc123,firstbridge_current_12345678,First Bridge Bank")
	assert.Contains(t, string(heads), "2024-03-14")
	assert.Contains(t, string(heads), "100.0000,150.0000,60.0000,10.0000")

	lines, err := os.ReadFile(filepath.Join(dir, "statement_lines.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(lines), "abc123,1,1,2024-03-15,D,CARD PAYMENT,0.0000,10.0000,-10.0000,90.0000")
	assert.Contains(t, string(lines), "abc123,2,1,2024-03-16,C,SALARY,60.0000,0.0000,60.0000,150.0000")
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statements.xlsx")
	require.NoError(t, WriteXLSX(path, []*statement.Statement{sampleStatement()}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{"Heads", "Lines", "Checks"}, f.GetSheetList())

	head, err := f.GetCellValue("Heads", "A2")
	require.NoError(t, err)
	assert.Equal(t, "abc123", head)

	desc, err := f.GetCellValue("Lines", "F3")
	require.NoError(t, err)
	assert.Equal(t, "SALARY", desc)

	running, err := f.GetCellValue("Checks", "I2")
	require.NoError(t, err)
	assert.Equal(t, "150.0000", running)
}
