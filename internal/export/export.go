// Package export renders processed statements to CSV and Excel workbooks.
package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"github.com/boscorat/bankparse/internal/currency"
	"github.com/boscorat/bankparse/internal/statement"
)

const dateLayout = "2006-01-02"

// headRow is the CSV shape of a statement header.
type headRow struct {
	IDStatement    string `csv:"id_statement"`
	IDAccount      string `csv:"id_account"`
	Company        string `csv:"company"`
	Account        string `csv:"account"`
	StatementType  string `csv:"statement_type"`
	StatementDate  string `csv:"statement_date"`
	OpeningBalance string `csv:"opening_balance"`
	ClosingBalance string `csv:"closing_balance"`
	PaymentsIn     string `csv:"payments_in"`
	PaymentsOut    string `csv:"payments_out"`
}

// lineRow is the CSV shape of a statement transaction line.
type lineRow struct {
	IDStatement       string `csv:"id_statement"`
	TransactionNumber int    `csv:"transaction_number"`
	PageNumber        int    `csv:"page_number"`
	Date              string `csv:"transaction_date"`
	CreditDebit       string `csv:"credit_debit"`
	Description       string `csv:"description"`
	PaymentIn         string `csv:"payment_in"`
	PaymentOut        string `csv:"payment_out"`
	Movement          string `csv:"movement"`
	RunningBalance    string `csv:"running_balance"`
}

func headOf(stmt *statement.Statement) headRow {
	return headRow{
		IDStatement:    stmt.ID,
		IDAccount:      stmt.AccountID,
		Company:        stmt.Company,
		Account:        stmt.Account,
		StatementType:  stmt.StatementType,
		StatementDate:  formatDate(stmt),
		OpeningBalance: stmt.Header.OpeningBalance.StringFixed(currency.Scale),
		ClosingBalance: stmt.Header.ClosingBalance.StringFixed(currency.Scale),
		PaymentsIn:     stmt.Header.PaymentsIn.StringFixed(currency.Scale),
		PaymentsOut:    stmt.Header.PaymentsOut.StringFixed(currency.Scale),
	}
}

func linesOf(stmt *statement.Statement) []lineRow {
	rows := make([]lineRow, 0, len(stmt.Lines))
	for _, line := range stmt.Lines {
		date := ""
		if !line.Date.IsZero() {
			date = line.Date.Format(dateLayout)
		}
		rows = append(rows, lineRow{
			IDStatement:       stmt.ID,
			TransactionNumber: line.TransactionNumber,
			PageNumber:        line.PageNumber,
			Date:              date,
			CreditDebit:       line.CreditDebit,
			Description:       line.Description,
			PaymentIn:         line.PaymentIn.StringFixed(currency.Scale),
			PaymentOut:        line.PaymentOut.StringFixed(currency.Scale),
			Movement:          line.Movement.StringFixed(currency.Scale),
			RunningBalance:    line.RunningBalance.StringFixed(currency.Scale),
		})
	}
	return rows
}

func formatDate(stmt *statement.Statement) string {
	if stmt.Header.StatementDate.IsZero() {
		return stmt.Header.StatementDateRaw
	}
	return stmt.Header.StatementDate.Format(dateLayout)
}

// WriteCSV writes statement_heads.csv and statement_lines.csv into dir,
// covering every statement in the slice.
func WriteCSV(dir string, statements []*statement.Statement) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating export dir: %w", err)
	}

	heads := make([]headRow, 0, len(statements))
	var lines []lineRow
	for _, stmt := range statements {
		heads = append(heads, headOf(stmt))
		lines = append(lines, linesOf(stmt)...)
	}

	if err := writeCSVFile(filepath.Join(dir, "statement_heads.csv"), &heads); err != nil {
		return err
	}
	return writeCSVFile(filepath.Join(dir, "statement_lines.csv"), &lines)
}

func writeCSVFile(path string, rows any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	if err := gocsv.MarshalFile(rows, f); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// WriteXLSX writes one workbook with Heads, Lines, and Checks sheets.
func WriteXLSX(path string, statements []*statement.Statement) error {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	if err := writeHeadsSheet(f, statements); err != nil {
		return err
	}
	if err := writeLinesSheet(f, statements); err != nil {
		return err
	}
	if err := writeChecksSheet(f, statements); err != nil {
		return err
	}
	f.DeleteSheet("Sheet1") //nolint:errcheck // default sheet replaced by ours

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}

func writeHeadsSheet(f *excelize.File, statements []*statement.Statement) error {
	const sheet = "Heads"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	header := []any{
		"id_statement", "id_account", "company", "account", "statement_type",
		"statement_date", "opening_balance", "closing_balance", "payments_in", "payments_out",
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, stmt := range statements {
		h := headOf(stmt)
		row := []any{
			h.IDStatement, h.IDAccount, h.Company, h.Account, h.StatementType,
			h.StatementDate, h.OpeningBalance, h.ClosingBalance, h.PaymentsIn, h.PaymentsOut,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func writeLinesSheet(f *excelize.File, statements []*statement.Statement) error {
	const sheet = "Lines"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	header := []any{
		"id_statement", "transaction_number", "page_number", "transaction_date",
		"credit_debit", "description", "payment_in", "payment_out", "movement", "running_balance",
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	rowIdx := 2
	for _, stmt := range statements {
		for _, l := range linesOf(stmt) {
			row := []any{
				l.IDStatement, l.TransactionNumber, l.PageNumber, l.Date,
				l.CreditDebit, l.Description, l.PaymentIn, l.PaymentOut, l.Movement, l.RunningBalance,
			}
			cell, _ := excelize.CoordinatesToCellName(1, rowIdx)
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				return err
			}
			rowIdx++
		}
	}
	return nil
}

func writeChecksSheet(f *excelize.File, statements []*statement.Statement) error {
	const sheet = "Checks"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	header := []any{
		"id_statement", "success", "bal_payments_in", "bal_payments_out",
		"bal_movement", "bal_closing", "zero_transaction",
		"statement_movement", "final_running_balance",
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, stmt := range statements {
		cab := stmt.Checks
		row := []any{
			stmt.ID, cab.Success, cab.BalPaymentsIn, cab.BalPaymentsOut,
			cab.BalMovement, cab.BalClosing, cab.ZeroTransaction,
			cab.StatementMovement.StringFixed(currency.Scale),
			cab.FinalRunningBalance.StringFixed(currency.Scale),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
