package main

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/breeze-rmm/swcheck/internal/batch"
)

// collectNames gathers names from args and the --file list. Stdin is read
// only when neither is given and it is not an interactive terminal.
func collectNames(args []string, file string, stdin io.Reader) ([]string, error) {
	var names []string
	for _, arg := range args {
		names = append(names, batch.ParseNames(arg)...)
	}

	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("open names file: %w", err)
		}
		defer f.Close()
		fromFile, err := batch.ReadNames(f)
		if err != nil {
			return nil, err
		}
		names = append(names, fromFile...)
	}

	if len(args) > 0 || file != "" || stdin == nil || isTerminal(stdin) {
		return names, nil
	}
	return batch.ReadNames(stdin)
}

func isTerminal(v any) bool {
	f, ok := v.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}
