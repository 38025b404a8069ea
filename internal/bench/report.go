package bench

import (
	"io"

	jsoniter "github.com/json-iterator/go"
)

// JSONLines returns an emit function writing each row as one JSON object per line.
func JSONLines(w io.Writer) func(Row) error {
	encoder := jsoniter.ConfigFastest.NewEncoder(w)

	return func(row Row) error {
		return encoder.Encode(row)
	}
}
