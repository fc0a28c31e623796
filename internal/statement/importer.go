// Package statement imports bank statement exports into pending bank
// transaction records. Import is idempotent: every row is keyed by a dedup hash
// and a row seen before only ever backfills a missing balance.
package statement

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"fjacquet/church-ledger/internal/dateutils"
	"fjacquet/church-ledger/internal/ledgererror"
	"fjacquet/church-ledger/internal/logging"
	"fjacquet/church-ledger/internal/models"
	"fjacquet/church-ledger/internal/store"

	"github.com/google/uuid"
)

// Result summarises one import.
type Result struct {
	BatchID   string
	Imported  int
	Skipped   int
	Malformed int
	// Problems lists the malformed rows in input order.
	Problems []*ledgererror.ParseError
}

// Options tune the statement format.
type Options struct {
	Delimiter  rune
	DateLayout string
}

// Importer writes statement rows to the store.
type Importer struct {
	store      *store.Store
	classifier *Classifier
	opts       Options
	logger     logging.Logger
}

// NewImporter creates an importer. A nil classifier selects the built-in rules.
func NewImporter(s *store.Store, classifier *Classifier, opts Options, logger logging.Logger) *Importer {
	if classifier == nil {
		classifier = NewClassifier(nil)
	}
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	if opts.DateLayout == "" {
		opts.DateLayout = dateutils.DateLayoutUS
	}
	return &Importer{
		store:      s,
		classifier: classifier,
		opts:       opts,
		logger:     logging.OrDefault(logger),
	}
}

// Import reads a delimited statement export and imports every row. Lines the
// CSV reader cannot split are counted as malformed. Storage failures abort the
// import; rows already written stay written.
func (im *Importer) Import(ctx context.Context, r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.Comma = im.opts.Delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	res := im.newResult()
	log := im.logger.WithField(logging.FieldBatchID, res.BatchID)

	rowNum := 0
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return res, fmt.Errorf("error reading statement: %w", err)
			}
			im.malformed(res, log, &ledgererror.ParseError{Row: rowNum, Field: "line", Err: err})
			continue
		}
		if rowNum == 1 && IsHeader(fields, im.opts.DateLayout) {
			log.Debug("Skipping header row")
			continue
		}
		if err := im.importFields(ctx, res, log, fields, rowNum); err != nil {
			return res, err
		}
	}

	im.logResult(log, res)
	return res, nil
}

// ImportRows imports already split rows. The first row is skipped when it is
// a header.
func (im *Importer) ImportRows(ctx context.Context, rows [][]string) (*Result, error) {
	res := im.newResult()
	log := im.logger.WithField(logging.FieldBatchID, res.BatchID)

	for i, fields := range rows {
		if i == 0 && IsHeader(fields, im.opts.DateLayout) {
			log.Debug("Skipping header row")
			continue
		}
		if err := im.importFields(ctx, res, log, fields, i+1); err != nil {
			return res, err
		}
	}

	im.logResult(log, res)
	return res, nil
}

func (im *Importer) newResult() *Result {
	return &Result{BatchID: uuid.NewString()}
}

func (im *Importer) importFields(ctx context.Context, res *Result, log logging.Logger, fields []string, rowNum int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	row, err := ParseRow(fields, rowNum, im.opts.DateLayout)
	if err != nil {
		var perr *ledgererror.ParseError
		if errors.As(err, &perr) {
			im.malformed(res, log, perr)
			return nil
		}
		return err
	}

	imported, err := im.importRow(ctx, row, fields)
	if err != nil {
		log.WithError(err).WithField(logging.FieldRow, rowNum).Error("Failed to store statement row")
		return err
	}
	if imported {
		res.Imported++
	} else {
		res.Skipped++
	}
	return nil
}

// importRow reports whether the row created a record or backfilled a balance.
func (im *Importer) importRow(ctx context.Context, row *Row, fields []string) (bool, error) {
	hash := DedupHash(row.Date, row.Description, row.Amount)

	existing, err := im.store.FindBankTxByHash(ctx, hash)
	switch {
	case err == nil:
		return im.backfill(ctx, existing, row)
	case !ledgererror.IsNotFound(err):
		return false, err
	}

	bankType := im.classifier.Classify(row.Description)
	checkNumber := row.CheckNumber
	if checkNumber == "" && bankType == models.BankTypeCheck {
		checkNumber = ExtractCheckNumber(row.Description)
	}

	rec := &models.BankTransactionRecord{
		DedupHash:      hash,
		Date:           row.Date,
		Amount:         row.Amount,
		Balance:        row.Balance,
		Description:    row.Description,
		Type:           bankType,
		Status:         models.StatusPending,
		PayerNameGuess: ExtractPayerName(row.Description, bankType),
		CheckNumber:    checkNumber,
		RawPayload:     encodeRaw(fields, im.opts.Delimiter),
	}
	inserted, err := im.store.InsertBankTx(ctx, rec)
	if err != nil {
		return false, err
	}
	if inserted {
		return true, nil
	}

	// lost a race with a concurrent import of the same row
	existing, err = im.store.FindBankTxByHash(ctx, hash)
	if err != nil {
		return false, err
	}
	return im.backfill(ctx, existing, row)
}

func (im *Importer) backfill(ctx context.Context, existing *models.BankTransactionRecord, row *Row) (bool, error) {
	if existing.Balance.Valid || !row.Balance.Valid {
		return false, nil
	}
	updated, err := im.store.BackfillBalance(ctx, existing.ID, row.Balance.Decimal)
	if err != nil {
		return false, err
	}
	if updated {
		im.logger.WithField(logging.FieldBankTxID, existing.ID).Debug("Backfilled missing balance")
	}
	return updated, nil
}

func (im *Importer) malformed(res *Result, log logging.Logger, perr *ledgererror.ParseError) {
	res.Malformed++
	res.Problems = append(res.Problems, perr)
	log.WithError(perr).WithField(logging.FieldRow, perr.Row).Warn("Skipping malformed statement row")
}

func (im *Importer) logResult(log logging.Logger, res *Result) {
	log.WithFields(
		logging.Field{Key: "imported", Value: res.Imported},
		logging.Field{Key: "skipped", Value: res.Skipped},
		logging.Field{Key: "malformed", Value: res.Malformed},
	).Info("Statement import finished")
}

func encodeRaw(fields []string, delimiter rune) string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = delimiter
	_ = w.Write(fields)
	w.Flush()
	return strings.TrimRight(buf.String(), "\r\n")
}
