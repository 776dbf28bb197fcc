package engine

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dtnitsch/drawing-sync/models"
)

// quote wraps s in single quotes, escaping embedded quotes the way the
// engine's own replies do.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "|'") + "'"
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func Open(path string) string {
	return fmt.Sprintf("Open(%s)", quote(path))
}

func Close() string {
	return "Close()"
}

func Save() string {
	return "Save()"
}

// SaveAs saves the open document under a new path.
func SaveAs(path string) string {
	return fmt.Sprintf("Save(%s)", quote(path))
}

// Script runs a batch of commands stored in a file.
func Script(path string) string {
	return fmt.Sprintf("Script(%s)", quote(path))
}

func MarkupGetExList(page models.PageNumber) string {
	return fmt.Sprintf("MarkupGetExList(%d)", int(page))
}

func MarkupCopy(page models.PageNumber, id string) string {
	return fmt.Sprintf("MarkupCopy(%d, %s)", int(page), quote(id))
}

// MarkupPaste pastes a copied markup. The format string is passed through
// untouched since it comes from the engine's own MarkupCopy reply.
func MarkupPaste(page models.PageNumber, format string, x, y float64) string {
	return fmt.Sprintf("MarkupPaste(%d, '%s', %s, %s)", int(page), format, formatCoord(x), formatCoord(y))
}

// MarkupSet updates markup properties. Keys are written in sorted order.
func MarkupSet(page models.PageNumber, id string, props map[string]string) (string, error) {
	data, err := json.Marshal(props)
	if err != nil {
		return "", fmt.Errorf("failed to encode properties for markup %s: %w", id, err)
	}
	return fmt.Sprintf("MarkupSet(%d, %s, %s)", int(page), quote(id), quote(string(data))), nil
}

func Combine(paths ...string) string {
	quoted := make([]string, len(paths))
	for i, p := range paths {
		quoted[i] = quote(p)
	}
	return fmt.Sprintf("Combine(%s)", strings.Join(quoted, ", "))
}
