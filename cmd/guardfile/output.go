package main

import (
	"fmt"
	"io"

	json "github.com/goccy/go-json"
)

// emit writes v as indented JSON when --json is set, otherwise text.
func emit(w io.Writer, opts *options, v any, text string) error {
	if opts.jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}
