// Package emoji provides status symbols for CLI output.
package emoji

const (
	// Success marks a completed operation or a passing check.
	Success = "✓"

	// Error marks a failed operation or check.
	Error = "✗"

	// Warning marks a non-fatal problem, such as rejected records.
	Warning = "!"
)
