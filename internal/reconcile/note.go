package reconcile

import (
	"strings"

	"fjacquet/church-ledger/internal/models"
	"fjacquet/church-ledger/internal/textutils"
)

const unknownDonor = "Unknown donor"

// donorLabel names who gave: the member, else the manually entered donor,
// else the payer guessed from the statement.
func donorLabel(member *models.Member, req Request, rec *models.BankTransactionRecord) string {
	if member != nil {
		if name := member.FullName(); name != "" {
			return name
		}
	}
	name := strings.TrimSpace(req.ManualDonorName)
	label := strings.TrimSpace(req.ManualDonorTypeLabel)
	switch {
	case name != "" && label != "":
		return name + " (" + label + ")"
	case name != "":
		return name
	case label != "":
		return label
	case rec != nil && rec.PayerNameGuess != "":
		return rec.PayerNameGuess
	default:
		return unknownDonor
	}
}

// buildNote renders "<donor> - <payment type> - <description>" within the
// note column limit.
func buildNote(donor string, pt models.PaymentType, description string) string {
	parts := []string{donor, pt.Label()}
	if d := textutils.CollapseWhitespace(description); d != "" {
		parts = append(parts, d)
	}
	return textutils.Truncate(strings.Join(parts, " - "), models.NoteMaxLength)
}
