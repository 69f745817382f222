package ui

import "apexci/internal/storage"

// Viewer displays a stored deploy in an interactive TUI
type Viewer interface {
	View(record *storage.Record) error
}
