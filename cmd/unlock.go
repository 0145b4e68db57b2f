package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/desertthunder/gsotw/internal/gate"
	"github.com/desertthunder/gsotw/internal/shared"
)

// readPassword is swapped out in tests.
var readPassword = term.ReadPassword

// Unlock checks the group code and stores the access flag for later commands.
func (r *Runner) Unlock(ctx context.Context, cmd *cli.Command) error {
	store, err := r.flagStore()
	if err != nil {
		return err
	}

	g := r.gate()
	if g.Check(store) == gate.Granted {
		return r.writePlain("✓ Already unlocked\n")
	}

	code := cmd.String("code")
	if code == "" {
		if code, err = r.promptCode(); err != nil {
			return err
		}
	}

	if err := g.Unlock(store, code); err != nil {
		if errors.Is(err, shared.ErrInvalidCode) {
			r.writePlain("%s\n", gate.InvalidCodeMessage)
		}
		return err
	}
	return r.writePlain("✓ Unlocked\n")
}

// promptCode reads the code without echo from a terminal, or as one line from any other input.
func (r *Runner) promptCode() (string, error) {
	if _, err := fmt.Fprint(r.output, "Access code: "); err != nil {
		return "", err
	}

	if f, ok := r.input.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		code, err := readPassword(int(f.Fd()))
		fmt.Fprintln(r.output)
		if err != nil {
			return "", fmt.Errorf("failed to read access code: %w", err)
		}
		return string(code), nil
	}

	line, err := bufio.NewReader(r.input).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return "", fmt.Errorf("%w: no access code entered", shared.ErrMissingArgument)
	}
	return strings.TrimSpace(line), nil
}
