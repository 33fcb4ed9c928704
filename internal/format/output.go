package format

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteJSON writes strict JSON output for CLI commands.
//
// Output stays strict JSON so scripts and agents can consume it; hints about
// further data belong in a `meta` object, not prose.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
