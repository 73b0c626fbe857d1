// Package main provides the entry point for btbsim.
// btbsim is a functional simulator of a branch target buffer and a return
// address stack driven by traces of retired instructions.
//
// For the full CLI, use: go run ./cmd/btbsim
package main

import (
	"fmt"
	"os"

	"github.com/sarchlab/btbsim/trace"
)

func main() {
	fmt.Println("btbsim - Branch Target Buffer Simulator")
	fmt.Println("")
	fmt.Println("Usage: btbsim [options] (--trace <file> | --workload <name>)")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -o         Output file for the report (default btb.out)")
	fmt.Println("  --btb      BTB number of entries")
	fmt.Println("  -a         BTB associativity")
	fmt.Println("  --ras      RAS number of entries")
	fmt.Println("  --tag      Size of tag")
	fmt.Println("  --mpr      Direction misprediction rate")
	fmt.Println("")
	fmt.Println("Workloads:")
	for _, name := range trace.WorkloadNames() {
		fmt.Printf("  %-12s %s\n", name, trace.WorkloadDescription(name))
	}
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/btbsim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/btbsim' instead.")
	}
}
