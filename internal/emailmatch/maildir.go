package emailmatch

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"fjacquet/church-ledger/internal/logging"
)

// MessageSource supplies received messages, newest first.
type MessageSource interface {
	Messages(ctx context.Context, limit int) ([]Message, error)
}

// MaildirSource reads RFC 5322 messages from a directory: *.eml files at the
// top level and every file under cur/ and new/.
type MaildirSource struct {
	dir    string
	logger logging.Logger
}

// NewMaildirSource creates a source over dir.
func NewMaildirSource(dir string, logger logging.Logger) *MaildirSource {
	return &MaildirSource{dir: dir, logger: logging.OrDefault(logger)}
}

// Messages parses up to limit messages, newest first. Unreadable files are
// logged and skipped. A limit <= 0 reads everything.
func (s *MaildirSource) Messages(ctx context.Context, limit int) ([]Message, error) {
	paths, err := s.files()
	if err != nil {
		return nil, err
	}

	var msgs []Message
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msg, err := readMessageFile(path)
		if err != nil {
			s.logger.WithError(err).WithField(logging.FieldFile, path).Warn("Skipping unreadable message")
			continue
		}
		msgs = append(msgs, *msg)
	}

	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].Received.After(msgs[j].Received) })
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

func (s *MaildirSource) files() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("error reading mail directory %s: %w", s.dir, err)
	}

	var paths []string
	for _, e := range entries {
		switch {
		case !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".eml"):
			paths = append(paths, filepath.Join(s.dir, e.Name()))
		case e.IsDir() && (e.Name() == "cur" || e.Name() == "new"):
			sub, err := os.ReadDir(filepath.Join(s.dir, e.Name()))
			if err != nil {
				return nil, fmt.Errorf("error reading mail directory %s: %w", e.Name(), err)
			}
			for _, f := range sub {
				if !f.IsDir() && !strings.HasPrefix(f.Name(), ".") {
					paths = append(paths, filepath.Join(s.dir, e.Name(), f.Name()))
				}
			}
		}
	}
	return paths, nil
}

func readMessageFile(path string) (*Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	msg, err := ParseMessage(f)
	if err != nil {
		return nil, err
	}
	if msg.ID == "" {
		msg.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if msg.Received.IsZero() {
		if info, err := f.Stat(); err == nil {
			msg.Received = info.ModTime()
		}
	}
	return msg, nil
}

var wordDecoder = new(mime.WordDecoder)

// ParseMessage reads one RFC 5322 message, keeping the first text/plain and
// text/html parts.
func ParseMessage(r io.Reader) (*Message, error) {
	m, err := mail.ReadMessage(r)
	if err != nil {
		return nil, fmt.Errorf("error parsing message: %w", err)
	}

	subject, err := wordDecoder.DecodeHeader(m.Header.Get("Subject"))
	if err != nil {
		subject = m.Header.Get("Subject")
	}
	from, err := wordDecoder.DecodeHeader(m.Header.Get("From"))
	if err != nil {
		from = m.Header.Get("From")
	}

	msg := &Message{
		ID:      strings.Trim(strings.TrimSpace(m.Header.Get("Message-Id")), "<>"),
		From:    from,
		Subject: subject,
	}
	if date, err := m.Header.Date(); err == nil {
		msg.Received = date
	}

	if err := readPart(msg, m.Header.Get("Content-Type"), m.Header.Get("Content-Transfer-Encoding"), m.Body); err != nil {
		return nil, err
	}
	return msg, nil
}

func readPart(msg *Message, contentType, encoding string, body io.Reader) error {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		mr := multipart.NewReader(body, params["boundary"])
		for {
			part, err := mr.NextRawPart()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return fmt.Errorf("error reading multipart body: %w", err)
			}
			err = readPart(msg, part.Header.Get("Content-Type"), part.Header.Get("Content-Transfer-Encoding"), part)
			if err != nil {
				return err
			}
		}
	}

	if mediaType != "text/plain" && mediaType != "text/html" {
		return nil
	}
	data, err := io.ReadAll(decodeTransfer(encoding, body))
	if err != nil {
		return fmt.Errorf("error decoding %s body: %w", mediaType, err)
	}
	switch {
	case mediaType == "text/plain" && msg.Text == "":
		msg.Text = string(data)
	case mediaType == "text/html" && msg.HTML == "":
		msg.HTML = string(data)
	}
	return nil
}

func decodeTransfer(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}

