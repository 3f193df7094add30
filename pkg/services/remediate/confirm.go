package remediate

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Confirmation strength is tied to blast radius: a single destructive action
// takes y/N, a bulk destructive batch requires typing the phrase back.
type Strength int

const (
	StrengthYesNo Strength = iota
	StrengthTypedPhrase
)

const BulkPhrase = "DELETE ALL"

type Prompt struct {
	Message  string
	Strength Strength
	// Phrase is the exact text required when Strength is StrengthTypedPhrase.
	Phrase string
}

type Confirmer interface {
	Confirm(ctx context.Context, prompt Prompt) (bool, error)
}

// terminalConfirmer reads the operator's answer from an input stream.
type terminalConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func NewTerminalConfirmer(in io.Reader, out io.Writer) Confirmer {
	return &terminalConfirmer{in: bufio.NewReader(in), out: out}
}

func (c *terminalConfirmer) Confirm(_ context.Context, prompt Prompt) (bool, error) {
	switch prompt.Strength {
	case StrengthTypedPhrase:
		fmt.Fprintf(c.out, "%s\nType %q to proceed: ", prompt.Message, prompt.Phrase)
		line, err := c.in.ReadString('\n')
		if err != nil {
			return false, err
		}
		return strings.TrimSpace(line) == prompt.Phrase, nil
	default:
		fmt.Fprintf(c.out, "%s [y/N]: ", prompt.Message)
		line, err := c.in.ReadString('\n')
		if err != nil {
			return false, err
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes", nil
	}
}
