package mailsource

import (
	"errors"
	"fmt"
	"io"

	"github.com/emersion/go-mbox"
	"github.com/mikey/vertretungsanalyse/internal/core"
)

// ErrStop can be returned by a MessageFunc to end ReadMbox early without an error
var ErrStop = errors.New("stop reading mailbox")

// MessageFunc receives each message of a mailbox in order. err is set when
// the message could not be parsed; returning an error ends the iteration.
type MessageFunc func(index int, email *core.Email, err error) error

// ReadMbox parses every message of an mbox file and hands it to fn
func ReadMbox(r io.Reader, fn MessageFunc) error {
	reader := mbox.NewReader(r)
	for i := 0; ; i++ {
		msgReader, err := reader.NextMessage()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read mailbox: %w", err)
		}

		email, parseErr := ParseMessage(msgReader)
		if err := fn(i, email, parseErr); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}
}
