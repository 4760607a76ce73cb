package ui

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

// Confirm asks the user to approve deleting count resources.
// An aborted prompt counts as a decline.
func Confirm(ctx context.Context, count int) (bool, error) {
	var approved bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %d resources?", count)).
				Description("This cannot be undone. Re-run with --dryrun to only list them.").
				Affirmative("Yes, delete").
				Negative("No").
				Value(&approved),
		),
	).RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("confirmation prompt failed: %w", err)
	}
	return approved, nil
}

// IsInteractive reports whether f is attached to a terminal.
func IsInteractive(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
