// Command btbsim scores a branch target buffer and return address stack
// against a trace of retired instructions.
//
// Usage:
//
//	btbsim [flags]
//	btbsim history --db runs.sqlite3
//	btbsim dump --workload <name> [-o file]
//
// Example:
//
//	# Score the default 64-entry 4-way BTB on a synthetic workload
//	btbsim --workload mixed -o -
//
//	# Score a recorded trace with an 8-way BTB and keep the summary
//	btbsim --trace app.trace --btb 256 --assoc 8 --db runs.sqlite3
//
//	# Write a synthetic workload as an editable text trace
//	btbsim dump --workload calls -o calls.trace
package main

import (
	"github.com/tebeka/atexit"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
