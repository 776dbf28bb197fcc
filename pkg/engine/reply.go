package engine

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/dtnitsch/drawing-sync/models"
	"github.com/dtnitsch/drawing-sync/pkg/syncerr"
)

// DecodeText converts raw engine output to a string with "\n" line endings.
func DecodeText(raw []byte, encoding string) (string, error) {
	var text string
	switch encoding {
	case models.EncodingGBK:
		b, err := simplifiedchinese.GBK.NewDecoder().Bytes(raw)
		if err != nil {
			return "", syncerr.NewExternalEngine("reply is not valid GBK", err)
		}
		text = string(b)
	case models.EncodingUTF8, "":
		text = string(raw)
	default:
		return "", fmt.Errorf("unknown reply encoding %q", encoding)
	}
	return strings.ReplaceAll(text, "\r\n", "\n"), nil
}

// Blocks splits a reply into count-prefixed blocks: a line holding k is
// followed by k data lines. Commands without output contribute no block.
// The final line break of the reply ends an empty line, so a trailing "1"
// with nothing after it is a block holding one empty line.
func Blocks(text string) ([][]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	lines := strings.Split(text, "\n")

	var blocks [][]string
	for i := 0; i < len(lines); {
		if strings.TrimSpace(lines[i]) == "" {
			// blank separator where a count is expected
			i++
			continue
		}
		k, err := strconv.Atoi(strings.TrimSpace(lines[i]))
		if err != nil || k < 0 {
			return nil, syncerr.NewExternalEngine(
				fmt.Sprintf("line %d: expected block count, got %q", i+1, lines[i]), err)
		}
		if i+1+k > len(lines) {
			return nil, syncerr.NewExternalEngine(
				fmt.Sprintf("line %d: block declares %d lines but only %d remain", i+1, k, len(lines)-i-1), nil)
		}
		block := make([]string, k)
		for j := 0; j < k; j++ {
			block[j] = strings.TrimRight(lines[i+1+j], "\r")
		}
		blocks = append(blocks, block)
		i += 1 + k
	}
	return blocks, nil
}
