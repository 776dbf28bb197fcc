package common

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by --format.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Write prints v to stdout in the --format of c.
func Write(c *cli.Context, v any) error {
	return Encode(os.Stdout, c.String("format"), v)
}

// Encode writes v to w as YAML (the default) or indented JSON.
func Encode(w io.Writer, format string, v any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// FilterFields keeps only the named top-level fields of result, as seen
// through its JSON encoding. An empty field list keeps everything.
func FilterFields(result any, fieldsStr string) map[string]any {
	full := structToMap(result)
	if fieldsStr == "" {
		return full
	}

	include := make(map[string]bool)
	for _, field := range strings.Split(fieldsStr, ",") {
		include[strings.TrimSpace(field)] = true
	}

	filtered := make(map[string]any)
	for key, value := range full {
		if include[key] {
			filtered[key] = value
		}
	}
	return filtered
}

// structToMap converts a struct to map[string]any using JSON marshaling.
func structToMap(obj any) map[string]any {
	data, _ := json.Marshal(obj)
	var result map[string]any
	_ = json.Unmarshal(data, &result)
	return result
}
