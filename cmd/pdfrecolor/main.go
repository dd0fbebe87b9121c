// Command pdfrecolor replaces colors in the page content of PDF files.
//
//	pdfrecolor input.pdf output.pdf --colors colors.json
//
// The rule file lists target and replacement colors as #RRGGBB pairs. See
// pdfrecolor --help for the inspect, batch and palette subcommands.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/pterm/pterm"
	"gitlab.com/tozd/go/errors"
)

func main() {
	// A .env file is optional; its values only seed flag defaults.
	_ = godotenv.Load()

	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand(stdout, stderr)
	cmd.SetArgs(args)

	if err := cmd.ExecuteContext(ctx); err != nil {
		printError(stdout, err)
		return 1
	}
	return 0
}

// displayError carries the message shown to the user while keeping the
// underlying error for errors.Is.
type displayError struct {
	msg string
	err error
}

func (e *displayError) Error() string { return e.msg }
func (e *displayError) Unwrap() error { return e.err }

func userError(err error, format string, args ...any) error {
	return &displayError{msg: fmt.Sprintf(format, args...), err: err}
}

func printError(w io.Writer, err error) {
	var de *displayError
	if errors.As(err, &de) {
		pterm.Error.WithWriter(w).Println(de.msg)
		return
	}
	pterm.Error.WithWriter(w).Println(err.Error())
}
