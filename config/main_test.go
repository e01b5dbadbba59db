package config

import (
	"fmt"
	"os"
	"testing"
)

// TestMain refuses to run unless GO_ENV=test
func TestMain(m *testing.M) {
	if env := os.Getenv("GO_ENV"); env != "test" {
		fmt.Fprintf(os.Stderr, "config tests need GO_ENV=test (got %q)\n", env)
		fmt.Fprintln(os.Stderr, "run: GO_ENV=test go test ./...")
		os.Exit(1)
	}
	os.Exit(m.Run())
}
