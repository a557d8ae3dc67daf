package output

import (
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/yndnr/respkv/pkg/resp"
)

// YAMLFormatter formats replies as YAML.
type YAMLFormatter struct{}

// Format formats m as a YAML document.
func (f *YAMLFormatter) Format(w io.Writer, m resp.Message) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(toValue(m)); err != nil {
		return err
	}
	return enc.Close()
}
