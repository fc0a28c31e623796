package statement

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"fjacquet/church-ledger/internal/dateutils"
	"fjacquet/church-ledger/internal/models"

	"github.com/shopspring/decimal"
)

// DedupHash is the stable identity of a bank row: the hex SHA-256 of
// "YYYY-MM-DD|description|amount" with the amount at scale 2.
func DedupHash(date time.Time, description string, amount decimal.Decimal) string {
	key := dateutils.ToISODate(date) + "|" + description + "|" + amount.StringFixed(models.MoneyScale)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
