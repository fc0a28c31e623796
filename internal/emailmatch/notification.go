// Package emailmatch turns payment notification emails into proposed
// postings. Proposals are matched to members through the learned memo table
// and only become transactions when an operator commits them.
package emailmatch

import (
	"net/mail"
	"regexp"
	"strings"
	"time"

	"fjacquet/church-ledger/internal/dateutils"
	"fjacquet/church-ledger/internal/models"
	"fjacquet/church-ledger/internal/textutils"

	"github.com/shopspring/decimal"
)

// MemoMaxLength bounds the memo kept from a notification.
const MemoMaxLength = 200

var (
	amountRe  = regexp.MustCompile(`\$\s?(\d{1,3}(?:,\d{3})+(?:\.\d{2})?|\d+(?:\.\d{2})?)`)
	phoneRe   = regexp.MustCompile(`(?:^|\D)((?:\+?1[\s.-]?)?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4})(?:\D|$)`)
	emailRe   = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	memoRe    = regexp.MustCompile(`(?i)\bmemo\b\s*[:\-]?[^\r\n]*`)
	memoNAre  = regexp.MustCompile(`(?i)\bmemo\s*[:\-]?\s*n/?a\b`)
	memoTagRe = regexp.MustCompile(`(?i)\bmemo\b\s*[:\-]?`)
)

// Message is a received email.
type Message struct {
	ID       string
	From     string
	Subject  string
	Text     string
	HTML     string
	Received time.Time
}

// Notification is what could be read out of a payment message.
type Notification struct {
	MessageID   string
	ExternalID  string
	Subject     string
	Amount      decimal.NullDecimal
	Phone       string
	SenderEmail string
	Memo        string
	Date        time.Time
}

// Parser extracts notifications from messages.
type Parser struct {
	ignoredSenders []string
	boilerplate    []string
	loc            *time.Location
}

// NewParser creates a parser. Messages from ignoredSenders are discarded and
// the boilerplate phrases are removed from memos. Payment dates are taken in loc.
func NewParser(ignoredSenders, boilerplate []string, loc *time.Location) *Parser {
	if loc == nil {
		loc = time.UTC
	}
	ignored := make([]string, 0, len(ignoredSenders))
	for _, s := range ignoredSenders {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			ignored = append(ignored, s)
		}
	}
	return &Parser{ignoredSenders: ignored, boilerplate: boilerplate, loc: loc}
}

// ParseNotification reads msg. It returns false for messages from ignored
// senders.
func (p *Parser) ParseNotification(msg Message) (*Notification, bool) {
	sender := senderAddress(msg.From)
	if p.ignored(sender) {
		return nil, false
	}

	body := msg.Text
	if strings.TrimSpace(body) == "" && msg.HTML != "" {
		body = HTMLToText(msg.HTML)
	}

	n := &Notification{
		MessageID:   msg.ID,
		ExternalID:  models.MessageExternalID(msg.ID),
		Subject:     textutils.CollapseWhitespace(msg.Subject),
		SenderEmail: sender,
		Date:        dateutils.CalendarDay(msg.Received, p.loc),
	}

	if m := amountRe.FindStringSubmatch(msg.Subject + "\n" + body); m != nil {
		if amount, err := models.ParseAmount(m[1]); err == nil {
			n.Amount = decimal.NewNullDecimal(amount)
		}
	}
	// digits glued to a longer number are never a phone
	for _, m := range phoneRe.FindAllStringSubmatch(body, -1) {
		if phone := textutils.NormalizePhone(m[1]); phone != "" {
			n.Phone = phone
			break
		}
	}

	memo := msg.Subject
	if m := memoRe.FindString(body); m != "" {
		memo += " " + m
	}
	n.Memo = p.Sanitize(memo)
	return n, true
}

// Sanitize strips boilerplate and empty memo markers and collapses whitespace.
func (p *Parser) Sanitize(memo string) string {
	memo = memoNAre.ReplaceAllString(memo, " ")
	memo = textutils.RemovePhrases(memo, p.boilerplate)
	memo = memoTagRe.ReplaceAllString(memo, " ")
	return textutils.Truncate(textutils.CollapseWhitespace(memo), MemoMaxLength)
}

func (p *Parser) ignored(sender string) bool {
	for _, s := range p.ignoredSenders {
		if sender == s {
			return true
		}
	}
	return false
}

func senderAddress(from string) string {
	if addr, err := mail.ParseAddress(from); err == nil {
		return strings.ToLower(addr.Address)
	}
	return strings.ToLower(emailRe.FindString(from))
}
