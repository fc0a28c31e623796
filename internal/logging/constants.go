package logging

// Standardized field names for structured logging.
const (
	FieldBankTxID      = "bank_tx_id"
	FieldTransactionID = "transaction_id"
	FieldExternalID    = "external_id"
	FieldMemberID      = "member_id"
	FieldCollectorID   = "collector_id"
	FieldMessageID     = "message_id"
	FieldBatchID       = "batch_id"
	FieldYear          = "year"
	FieldRow           = "row"
	FieldReason        = "reason"
	FieldOperation     = "operation"
	FieldStatus        = "status"
	FieldCount         = "count"
	FieldAmount        = "amount"
	FieldPaymentType   = "payment_type"
	FieldGLCode        = "gl_code"
	FieldMemo          = "memo"
	FieldFile          = "file_path"
	FieldOrganization  = "organization"
)
