// Package prompt provides confirmation callbacks for destructive registry operations.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/chzyer/readline"

	"expdb/internal/logger"
	"expdb/internal/registry"
)

// LineReader reads one line of user input at a time.
type LineReader interface {
	Readline() (string, error)
}

// Ask reads answers from r until one is exactly "yes" or "no". End of input or
// an interrupt counts as "no".
func Ask(r LineReader) (bool, error) {
	for {
		line, err := r.Readline()
		if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		switch line {
		case "yes":
			return true, nil
		case "no":
			return false, nil
		}
	}
}

// Interactive asks on the terminal, repeating "<message> [yes/no] " until the
// user answers.
func Interactive() registry.ConfirmFunc {
	return func(_ context.Context, message string) (bool, error) {
		rl, err := readline.NewEx(&readline.Config{
			Prompt:                 message + " [yes/no] ",
			DisableAutoSaveHistory: true,
		})
		if err != nil {
			return false, fmt.Errorf("open terminal: %w", err)
		}
		defer rl.Close()

		ok, err := Ask(rl)
		logger.Debug("Confirmation answered", "message", message, "approved", ok)
		return ok, err
	}
}

// Always returns a callback that answers every question with answer. It backs
// --yes and non-interactive callers.
func Always(answer bool) registry.ConfirmFunc {
	return func(_ context.Context, message string) (bool, error) {
		logger.Debug("Confirmation answered without prompting", "message", message, "approved", answer)
		return answer, nil
	}
}
