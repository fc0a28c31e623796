package statement

import (
	"regexp"
	"strings"

	"fjacquet/church-ledger/internal/models"
	"fjacquet/church-ledger/internal/rules"
	"fjacquet/church-ledger/internal/textutils"
)

// Classifier assigns a type to a bank row from keywords in its description.
type Classifier struct {
	rules []rules.TypeRule
}

// NewClassifier builds a classifier over ordered rules. Nil rules select the
// built-in set.
func NewClassifier(typeRules []rules.TypeRule) *Classifier {
	if typeRules == nil {
		typeRules = rules.Default().BankTypes
	}
	return &Classifier{rules: typeRules}
}

// Classify returns the type of the first rule with a keyword appearing as a
// whole word in the description, or OTHER.
func (c *Classifier) Classify(description string) string {
	for _, r := range c.rules {
		for _, kw := range r.Keywords {
			if textutils.ContainsWord(description, kw) {
				return strings.ToUpper(r.Type)
			}
		}
	}
	return models.BankTypeOther
}

const payerTail = `(?:\s+(?:ON|CONF|CONF#|REF|ID|TRN)\b.*|\s+\d{4,}.*)?$`

var payerPatterns = map[string][]*regexp.Regexp{
	models.BankTypeZelle: {
		regexp.MustCompile(`(?i)ZELLE\s+(?:TRANSFER\s+|PAYMENT\s+|CREDIT\s+)?FROM\s+(.+?)` + payerTail),
	},
	models.BankTypeVenmo: {
		regexp.MustCompile(`(?i)VENMO\s+(?:CASHOUT\s+|PAYMENT\s+)?FROM\s+(.+?)` + payerTail),
	},
	models.BankTypePayPal: {
		regexp.MustCompile(`(?i)PAYPAL\s+(?:TRANSFER\s+|INST XFER\s+)?FROM\s+(.+?)` + payerTail),
	},
	models.BankTypeCashApp: {
		regexp.MustCompile(`(?i)(?:CASH\s*APP|SQUARE CASH)\*?\s*(?:FROM\s+)?(.+?)` + payerTail),
	},
	models.BankTypeDeposit: {
		regexp.MustCompile(`(?i)DEPOSIT\s+FROM\s+(.+?)` + payerTail),
	},
}

var genericPayer = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bFROM\s+(.+?)` + payerTail),
}

// ExtractPayerName guesses who paid from the description of a row of the
// given type. It returns "" when nothing plausible is found.
func ExtractPayerName(description, bankType string) string {
	patterns, ok := payerPatterns[bankType]
	if !ok {
		if bankType == models.BankTypeATM || bankType == models.BankTypeCheck {
			return ""
		}
		patterns = genericPayer
	}
	name := textutils.FirstSubmatch(patterns, description)
	name = strings.Trim(name, " -:*#")
	if name == "" || !containsLetter(name) {
		return ""
	}
	return textutils.TitleCase(name)
}

var checkNumberRe = regexp.MustCompile(`(?i)\b(?:CHECK|CHK)\s*#?\s*(\d{3,})`)

// ExtractCheckNumber finds a check number written into the description.
func ExtractCheckNumber(description string) string {
	if m := checkNumberRe.FindStringSubmatch(description); len(m) > 1 {
		return m[1]
	}
	return ""
}

func containsLetter(s string) bool {
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}
