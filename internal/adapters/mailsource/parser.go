package mailsource

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/mikey/vertretungsanalyse/internal/core"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

var wordDecoder = &mime.WordDecoder{CharsetReader: charsetReader}

// ParseMessage reads an RFC 5322 message into an Email. The body is the
// first text/plain part, or the first text/html part flattened to text when
// the message has no plain text.
func ParseMessage(r io.Reader) (*core.Email, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	email := &core.Email{
		Subject: decodeHeader(msg.Header.Get("Subject")),
		From:    firstAddress(msg.Header.Get("From")),
		To:      addressList(msg.Header.Get("To")),
		Cc:      addressList(msg.Header.Get("Cc")),
		Headers: map[string][]string(msg.Header),
	}

	var body bodyParts
	if err := body.process(msg.Header, msg.Body); err != nil {
		return nil, fmt.Errorf("failed to read message body: %w", err)
	}
	email.Body = body.text()

	return email, nil
}

// bodyParts collects the first plain and the first HTML text of a message
type bodyParts struct {
	plain    string
	html     string
	hasPlain bool
	hasHTML  bool
}

func (b *bodyParts) text() string {
	if b.hasPlain {
		return b.plain
	}
	if b.hasHTML {
		return flattenHTML(b.html)
	}
	return ""
}

func (b *bodyParts) process(header interface{ Get(string) string }, body io.Reader) error {
	ctype, params, err := mime.ParseMediaType(header.Get("Content-Type"))
	if err != nil {
		ctype = "text/plain"
		params = map[string]string{}
	}

	if strings.HasPrefix(ctype, "multipart/") {
		mr := multipart.NewReader(body, params["boundary"])
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				// Keep what was read before the broken part
				if b.hasPlain || b.hasHTML {
					return nil
				}
				return err
			}
			if err := b.process(part.Header, part); err != nil {
				return err
			}
		}
	}

	if disp, _, err := mime.ParseMediaType(header.Get("Content-Disposition")); err == nil && disp == "attachment" {
		return nil
	}

	switch {
	case ctype == "text/plain" && !b.hasPlain:
		text, err := readText(header, body, params["charset"])
		if err != nil {
			return err
		}
		b.plain, b.hasPlain = text, true
	case ctype == "text/html" && !b.hasHTML:
		text, err := readText(header, body, params["charset"])
		if err != nil {
			return err
		}
		b.html, b.hasHTML = text, true
	}
	return nil
}

// readText undoes the transfer encoding and converts the charset to UTF-8
func readText(header interface{ Get(string) string }, body io.Reader, charset string) (string, error) {
	// multipart.Part decodes quoted-printable itself and removes the header
	reader := body
	switch strings.ToLower(strings.TrimSpace(header.Get("Content-Transfer-Encoding"))) {
	case "base64":
		reader = base64.NewDecoder(base64.StdEncoding, body)
	case "quoted-printable":
		reader = quotedprintable.NewReader(body)
	}

	decoded, err := charsetReader(charset, reader)
	if err != nil {
		return "", err
	}

	data, err := io.ReadAll(decoded)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// charsetReader wraps input in a decoder for charset. Unknown charsets are
// read as is.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	charset = strings.ToLower(strings.TrimSpace(charset))
	if charset == "" || charset == "utf-8" || charset == "us-ascii" {
		return input, nil
	}
	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil || enc == nil {
		return input, nil
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}

func decodeHeader(value string) string {
	decoded, err := wordDecoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

// addressList reduces an address header to its bare addresses
func addressList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}

	parser := mail.AddressParser{WordDecoder: wordDecoder}
	addrs, err := parser.ParseList(value)
	if err != nil {
		return []string{decodeHeader(value)}
	}

	result := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		result = append(result, addr.Address)
	}
	return result
}

func firstAddress(value string) string {
	addrs := addressList(value)
	if len(addrs) == 0 {
		return ""
	}
	return addrs[0]
}
