// Command parse-recipients parses a recipient file and prints the result as
// JSON. It exits with status 1 when the file cannot yield any recipients.
//
// Usage:
//
//	parse-recipients [-errors] [-pretty] [file]
//
// With no file argument the text is read from stdin.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ignite/leadops/internal/recipients"
)

func main() {
	showErrors := flag.Bool("errors", false, "include skipped rows in the output")
	pretty := flag.Bool("pretty", false, "indent JSON output")
	flag.Parse()

	if err := run(flag.Args(), *showErrors, *pretty, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type output struct {
	Count      int                    `json:"count"`
	Delimiter  string                 `json:"delimiter"`
	Recipients []recipients.Recipient `json:"recipients"`
	Skipped    []recipients.RowError  `json:"skipped,omitempty"`
}

func run(args []string, showErrors, pretty bool, stdin io.Reader, stdout io.Writer) error {
	in := stdin
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	res, err := recipients.Parse(string(data))
	if err != nil {
		var pe *recipients.ParseError
		if errors.As(err, &pe) {
			return errors.New(pe.Reason)
		}
		return err
	}

	out := output{
		Count:      len(res.Recipients),
		Delimiter:  res.Delimiter,
		Recipients: res.Recipients,
	}
	if showErrors {
		out.Skipped = res.Skipped
	}

	enc := json.NewEncoder(stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(out)
}
