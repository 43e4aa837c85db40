package conductor

import (
	"github.com/fixturelab/conductor/types"
)

// Helper function to convert bool to int
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// getResultString returns a short string representing a status
func getResultString(status types.Status) string {
	switch status {
	case types.StatusPass:
		return "✓ pass"
	case types.StatusNotRun:
		return "- not run"
	case types.StatusInProgress:
		return "… running"
	default:
		return "✗ fail"
	}
}
