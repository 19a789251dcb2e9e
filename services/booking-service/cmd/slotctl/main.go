// Command slotctl is the operator CLI for the booking service: it prints the booking
// calendar, reviews conflicts straight from Postgres, applies the schema and mints staff tokens.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
