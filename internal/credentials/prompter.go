package credentials

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// ConsolePrompter reads a line from in after writing the message to out
type ConsolePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewConsolePrompter creates a prompter on the given streams
func NewConsolePrompter(in io.Reader, out io.Writer) *ConsolePrompter {
	return &ConsolePrompter{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// Prompt asks for a value and returns the entered line without the line ending
func (p *ConsolePrompter) Prompt(ctx context.Context, message string) (string, error) {
	if _, err := fmt.Fprint(p.out, message); err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}

	type lineResult struct {
		line string
		err  error
	}
	done := make(chan lineResult, 1)
	go func() {
		line, err := p.in.ReadString('\n')
		if err == io.EOF && line != "" {
			err = nil
		}
		done <- lineResult{line: strings.TrimRight(line, "\r\n"), err: err}
	}()

	select {
	case res := <-done:
		return res.line, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// StaticPrompter answers every prompt with a fixed value, e.g. a key taken
// from the configuration
type StaticPrompter struct {
	Value string
}

// Prompt returns the configured value
func (p StaticPrompter) Prompt(ctx context.Context, message string) (string, error) {
	return p.Value, nil
}
