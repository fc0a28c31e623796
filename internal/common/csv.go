// Package common provides the CSV exchange formats used by the command line:
// pending bank records go out, reconciliation decisions come back in.
package common

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"fjacquet/church-ledger/internal/dateutils"
	"fjacquet/church-ledger/internal/fileutils"
	"fjacquet/church-ledger/internal/logging"
	"fjacquet/church-ledger/internal/models"
	"fjacquet/church-ledger/internal/reconcile"

	"github.com/gocarina/gocsv"
)

// PendingRow is the CSV shape of a bank record awaiting reconciliation.
type PendingRow struct {
	BankTxID        uint   `csv:"bank_tx_id"`
	Date            string `csv:"date"`
	Amount          string `csv:"amount"`
	Balance         string `csv:"balance"`
	Type            string `csv:"type"`
	Description     string `csv:"description"`
	Payer           string `csv:"payer"`
	CheckNumber     string `csv:"check_number"`
	Status          string `csv:"status"`
	SuggestedMember string `csv:"suggested_member"`
	// Decision columns are left for the operator to fill in.
	MemberID    string `csv:"member_id"`
	PaymentType string `csv:"payment_type"`
}

// DecisionRow is one line of a reconciliation decision file. It shares its
// column names with PendingRow so an edited export can be read back.
type DecisionRow struct {
	BankTxID              uint   `csv:"bank_tx_id"`
	MemberID              string `csv:"member_id"`
	PaymentType           string `csv:"payment_type"`
	DonorName             string `csv:"donor_name"`
	DonorLabel            string `csv:"donor_label"`
	ExistingTransactionID string `csv:"existing_transaction_id"`
}

// PendingRows converts pending items to their CSV shape.
func PendingRows(items []reconcile.PendingItem) []PendingRow {
	rows := make([]PendingRow, 0, len(items))
	for _, item := range items {
		rec := item.Record
		row := PendingRow{
			BankTxID:    rec.ID,
			Date:        dateutils.ToISODate(rec.Date),
			Amount:      rec.Amount.StringFixed(2),
			Type:        rec.Type,
			Description: rec.Description,
			Payer:       rec.PayerNameGuess,
			CheckNumber: rec.CheckNumber,
			Status:      string(rec.Status),
		}
		if rec.Balance.Valid {
			row.Balance = rec.Balance.Decimal.StringFixed(2)
		}
		if item.SuggestedMemberID != nil {
			row.SuggestedMember = item.SuggestedMemberName
			row.MemberID = strconv.FormatUint(uint64(*item.SuggestedMemberID), 10)
		}
		rows = append(rows, row)
	}
	return rows
}

// WritePendingCSV writes items to w.
func WritePendingCSV(w io.Writer, items []reconcile.PendingItem, delimiter rune) error {
	csvWriter := csv.NewWriter(w)
	if delimiter != 0 {
		csvWriter.Comma = delimiter
	}
	if err := gocsv.MarshalCSV(PendingRows(items), gocsv.NewSafeCSVWriter(csvWriter)); err != nil {
		return fmt.Errorf("error writing CSV data: %w", err)
	}
	return nil
}

// WritePendingCSVFile writes items to path, creating its directory.
func WritePendingCSVFile(path string, items []reconcile.PendingItem, delimiter rune, logger logging.Logger) error {
	logger = logging.OrDefault(logger)

	file, err := fileutils.CreateFile(path)
	if err != nil {
		return err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close file")
		}
	}()

	if err := WritePendingCSV(file, items, delimiter); err != nil {
		return err
	}
	logger.WithFields(
		logging.Field{Key: logging.FieldFile, Value: path},
		logging.Field{Key: logging.FieldCount, Value: len(items)},
	).Info("Wrote pending records to CSV file")
	return nil
}

// ReadCSVFile reads a delimited file with a header row into a slice of
// structs. TCSVRow maps columns through csv struct tags.
func ReadCSVFile[TCSVRow any](path string, delimiter rune, logger logging.Logger) ([]TCSVRow, error) {
	logger = logging.OrDefault(logger)

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening CSV file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close file")
		}
	}()

	reader := csv.NewReader(file)
	if delimiter != 0 {
		reader.Comma = delimiter
	}
	reader.TrimLeadingSpace = true

	var rows []TCSVRow
	if err := gocsv.UnmarshalCSV(reader, &rows); err != nil {
		return nil, fmt.Errorf("error parsing CSV file: %w", err)
	}
	logger.WithFields(
		logging.Field{Key: logging.FieldFile, Value: path},
		logging.Field{Key: logging.FieldCount, Value: len(rows)},
	).Debug("Read CSV file")
	return rows, nil
}

// Request converts the row to a reconciliation request.
func (r DecisionRow) Request() (reconcile.Request, error) {
	req := reconcile.Request{
		BankTxID:             r.BankTxID,
		ManualDonorName:      strings.TrimSpace(r.DonorName),
		ManualDonorTypeLabel: strings.TrimSpace(r.DonorLabel),
	}
	if r.BankTxID == 0 {
		return req, fmt.Errorf("bank_tx_id is required")
	}

	pt, err := models.ParsePaymentType(r.PaymentType)
	if err != nil {
		return req, fmt.Errorf("bank_tx_id %d: %w", r.BankTxID, err)
	}
	req.PaymentType = pt

	if req.MemberID, err = optionalID(r.MemberID); err != nil {
		return req, fmt.Errorf("bank_tx_id %d: member_id: %w", r.BankTxID, err)
	}
	if req.ExistingTransactionID, err = optionalID(r.ExistingTransactionID); err != nil {
		return req, fmt.Errorf("bank_tx_id %d: existing_transaction_id: %w", r.BankTxID, err)
	}
	return req, nil
}

// ReadDecisions reads a decision file into reconciliation requests. Rows
// without a payment type are skipped; any other invalid row fails the read.
func ReadDecisions(path string, delimiter rune, logger logging.Logger) ([]reconcile.Request, error) {
	rows, err := ReadCSVFile[DecisionRow](path, delimiter, logger)
	if err != nil {
		return nil, err
	}

	reqs := make([]reconcile.Request, 0, len(rows))
	for _, row := range rows {
		if strings.TrimSpace(row.PaymentType) == "" {
			continue
		}
		req, err := row.Request()
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func optionalID(raw string) (*uint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		return nil, fmt.Errorf("invalid id %q", raw)
	}
	id := uint(v)
	return &id, nil
}
