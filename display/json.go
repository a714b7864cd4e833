// Package display writes command output.
package display

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/teranos/ldx/errors"
)

// ShouldOutputJSON reports whether cmd prints JSON: its own --json flag
// when set, otherwise the root's persistent --json.
func ShouldOutputJSON(cmd *cobra.Command) bool {
	if cmd == nil {
		return false
	}
	if f := cmd.Flags().Lookup("json"); f != nil && f.Changed {
		v, _ := cmd.Flags().GetBool("json")
		return v
	}
	v, _ := cmd.Root().PersistentFlags().GetBool("json")
	return v
}

// MarshalJSON indents v for terminals and pipes alike.
func MarshalJSON(v interface{}) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// OutputJSON writes v to w followed by a newline.
func OutputJSON(w io.Writer, v interface{}) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal %T", v)
	}
	_, err = fmt.Fprintln(w, string(data))
	return errors.Wrap(err, "write output")
}
