// Package ui provides terminal UI components for flowbridge's CLI output.
//
// The package includes a line spinner for blocking flow invocations, tables
// for workspaces and doctor checks, and the Bubble Tea model behind
// "flowbridge cache watch". Styling uses Lip Gloss with the ANSI palette
// below so output respects the user's terminal theme.
//
// # Color Scheme
//
//	ColorSuccess   (green)  - Successful operations
//	ColorError     (red)    - Failures and errors
//	ColorWarning   (yellow) - Warnings
//	ColorInfo      (cyan)   - Informational messages
//	ColorMuted     (gray)   - Secondary text, timing info
//	ColorSecondary (blue)   - In-progress indicators
//
// ApplyColorMode maps the output.color setting onto a Lip Gloss color
// profile; DisableColors is the --no-color shortcut.
//
// # Spinner Usage
//
//	s := ui.NewSpinner("Running flow workspace list")
//	s.SetWriter(os.Stderr)
//	s.Start()
//	// ... do work ...
//	s.Success() // or s.Fail()
package ui
