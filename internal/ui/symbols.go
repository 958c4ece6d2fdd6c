package ui

// Unicode symbols for status indicators.
const (
	SymbolSuccess  = "✓" // Command completed successfully
	SymbolFail     = "✗" // Command failed
	SymbolWarning  = "!" // Degraded, but usable
	SymbolPending  = "○" // Not yet started
	SymbolProgress = "◐" // In progress
	SymbolComplete = "●" // Done (alternative to success)
	SymbolSkipped  = "⊘" // Skipped
)
