package output

import (
	"encoding/json"
	"io"

	"github.com/yndnr/respkv/pkg/resp"
)

// JSONFormatter formats replies as indented JSON.
type JSONFormatter struct{}

// Format formats m as indented JSON.
func (f *JSONFormatter) Format(w io.Writer, m resp.Message) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(toValue(m))
}
