// Package models defines the persisted entities of the church ledger: imported
// bank rows, posted financial transactions, ledger entries, members, learned
// memo matches and the legacy yearly dues snapshot.
package models

// All returns every persisted model, in migration order.
func All() []interface{} {
	return []interface{}{
		&Member{},
		&BankTransactionRecord{},
		&FinancialTransaction{},
		&LedgerEntry{},
		&MemoMatch{},
		&YearlyPaymentSnapshot{},
	}
}
