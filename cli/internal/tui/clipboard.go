package tui

import (
	"context"
	"fmt"

	"github.com/atotto/clipboard"
)

// ClipboardCommitter copies the final message to the system clipboard instead
// of committing it.
type ClipboardCommitter struct{}

// Commit writes message to the clipboard.
func (ClipboardCommitter) Commit(_ context.Context, message string) error {
	if err := clipboard.WriteAll(message); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	return nil
}
