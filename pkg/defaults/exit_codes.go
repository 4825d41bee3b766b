package defaults

// Process exit codes used by cmd/bountyscout.
const (
	ExitOK          = 0
	ExitError       = 1
	ExitUsage       = 2
	ExitNoResults   = 3
	ExitInterrupted = 130
)
