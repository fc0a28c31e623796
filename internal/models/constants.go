package models

import (
	"fmt"
	"strings"
)

// BankTransactionStatus is the reconciliation state of an imported bank row.
type BankTransactionStatus string

// Bank transaction statuses
const (
	StatusPending BankTransactionStatus = "PENDING"
	StatusMatched BankTransactionStatus = "MATCHED"
	StatusIgnored BankTransactionStatus = "IGNORED"
)

// Bank row classifications produced by the statement classifier.
const (
	BankTypeZelle   = "ZELLE"
	BankTypeVenmo   = "VENMO"
	BankTypePayPal  = "PAYPAL"
	BankTypeCashApp = "CASHAPP"
	BankTypeCheck   = "CHECK"
	BankTypeDeposit = "DEPOSIT"
	BankTypeATM     = "ATM"
	BankTypeOther   = "OTHER"
)

// PaymentType is the enumerated fund or purpose of a posted transaction.
type PaymentType string

// Payment types
const (
	PaymentMembershipDue PaymentType = "membership_due"
	PaymentTithe         PaymentType = "tithe"
	PaymentDonation      PaymentType = "donation"
	PaymentOffering      PaymentType = "offering"
	PaymentPledge        PaymentType = "pledge_payment"
	PaymentBuildingFund  PaymentType = "building_fund"
	PaymentEvent         PaymentType = "special_event"
	PaymentOther         PaymentType = "other"
)

var paymentTypeLabels = map[PaymentType]string{
	PaymentMembershipDue: "Membership Due",
	PaymentTithe:         "Tithe",
	PaymentDonation:      "Donation",
	PaymentOffering:      "Offering",
	PaymentPledge:        "Pledge Payment",
	PaymentBuildingFund:  "Building Fund",
	PaymentEvent:         "Special Event",
	PaymentOther:         "Other",
}

// Label returns the display name of the payment type.
func (p PaymentType) Label() string {
	if l, ok := paymentTypeLabels[p]; ok {
		return l
	}
	return string(p)
}

// Valid reports whether p is one of the enumerated payment types.
func (p PaymentType) Valid() bool {
	_, ok := paymentTypeLabels[p]
	return ok
}

// ParsePaymentType accepts the stored value or the label, case-insensitively.
func ParsePaymentType(s string) (PaymentType, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	for p, label := range paymentTypeLabels {
		if norm == string(p) || norm == strings.ToLower(label) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown payment type %q", s)
}

// PaymentMethod is the channel money arrived through.
type PaymentMethod string

// Payment methods
const (
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	MethodZelle        PaymentMethod = "ZELLE"
	MethodOnline       PaymentMethod = "ONLINE"
	MethodCash         PaymentMethod = "CASH"
	MethodCheck        PaymentMethod = "CHECK"
)

// SourceSystem identifies the producer of a ledger entry.
type SourceSystem string

// Source systems
const (
	SourceManual      SourceSystem = "manual"
	SourceBankImport  SourceSystem = "bank_import"
	SourceEmailImport SourceSystem = "email_import"
)

// EntryType is the direction of a ledger entry.
type EntryType string

// Ledger entry types
const (
	EntryIncome  EntryType = "income"
	EntryExpense EntryType = "expense"
)

// Financial transaction statuses
const (
	TransactionPosted = "posted"
)

// NoteMaxLength is the storage limit of FinancialTransaction.Note.
const NoteMaxLength = 255

// BankExternalID derives the idempotency key of a posting made from a bank row.
func BankExternalID(bankTxID uint) string {
	return fmt.Sprintf("BANK-%d", bankTxID)
}

// MessageExternalID derives the idempotency key of a posting made from an email.
func MessageExternalID(messageID string) string {
	return "MSG-" + messageID
}
