package statement

import (
	"fmt"
	"strings"
	"time"

	"fjacquet/church-ledger/internal/dateutils"
	"fjacquet/church-ledger/internal/ledgererror"
	"fjacquet/church-ledger/internal/models"
	"fjacquet/church-ledger/internal/textutils"

	"github.com/shopspring/decimal"
)

// Column positions of a statement row.
const (
	colDetail = iota
	colDate
	colDescription
	colAmount
	colType
	colBalance
	colCheckNumber
)

// Field-count bounds of a well-formed row.
const (
	MinFields = 4
	MaxFields = 7
)

// Row is a parsed statement row.
type Row struct {
	Detail      string
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	BankType    string
	Balance     decimal.NullDecimal
	CheckNumber string
}

// ParseRow parses the fields of row number rowNum (1-based). Failures are
// reported as *ledgererror.ParseError.
func ParseRow(fields []string, rowNum int, dateLayout string) (*Row, error) {
	if len(fields) < MinFields || len(fields) > MaxFields {
		return nil, &ledgererror.ParseError{
			Row:   rowNum,
			Field: "fields",
			Value: fmt.Sprint(len(fields)),
			Err:   fmt.Errorf("expected %d to %d fields", MinFields, MaxFields),
		}
	}

	date, err := dateutils.ParseDate(fields[colDate], dateLayout)
	if err != nil {
		return nil, &ledgererror.ParseError{Row: rowNum, Field: "date", Value: fields[colDate], Err: err}
	}

	description := textutils.CollapseWhitespace(fields[colDescription])
	if description == "" {
		return nil, &ledgererror.ParseError{Row: rowNum, Field: "description", Err: fmt.Errorf("description is empty")}
	}

	amount, err := models.ParseAmount(fields[colAmount])
	if err != nil {
		return nil, &ledgererror.ParseError{Row: rowNum, Field: "amount", Value: fields[colAmount], Err: err}
	}

	row := &Row{
		Detail:      strings.TrimSpace(fields[colDetail]),
		Date:        date,
		Description: description,
		Amount:      amount,
	}
	if len(fields) > colType {
		row.BankType = strings.TrimSpace(fields[colType])
	}
	if len(fields) > colBalance {
		row.Balance, err = models.ParseOptionalAmount(fields[colBalance])
		if err != nil {
			return nil, &ledgererror.ParseError{Row: rowNum, Field: "balance", Value: fields[colBalance], Err: err}
		}
	}
	if len(fields) > colCheckNumber {
		row.CheckNumber = strings.TrimSpace(fields[colCheckNumber])
	}
	return row, nil
}

// IsHeader reports whether fields look like the export's header line: the
// first column reads "details" and the date column is not a date.
func IsHeader(fields []string, dateLayout string) bool {
	if len(fields) == 0 || !strings.EqualFold(strings.TrimSpace(fields[0]), "details") {
		return false
	}
	if len(fields) <= colDate {
		return true
	}
	_, err := dateutils.ParseDate(fields[colDate], dateLayout)
	return err != nil
}
