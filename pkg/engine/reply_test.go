package engine

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/dtnitsch/drawing-sync/models"
	"github.com/dtnitsch/drawing-sync/pkg/syncerr"
)

func TestBlocks_CountPrefixed(t *testing.T) {
	reply := "2\r\nfmt-a1\r\nfmt-a2\r\n0\r\n1\r\nfmt-c\r\n"
	text, err := DecodeText([]byte(reply), models.EncodingUTF8)
	if err != nil {
		t.Fatalf("DecodeText() error = %v", err)
	}

	got, err := Blocks(text)
	if err != nil {
		t.Fatalf("Blocks() error = %v", err)
	}
	want := [][]string{{"fmt-a1", "fmt-a2"}, {}, {"fmt-c"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Blocks() mismatch (-want +got):\n%s", diff)
	}
}

func TestBlocks_Errors(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{name: "count exceeds remaining lines", reply: "3\nonly\ntwo"},
		{name: "second block short", reply: "1\na\n2\nb"},
		{name: "count not a number", reply: "x\na"},
		{name: "negative count", reply: "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Blocks(tt.reply)
			if !errors.Is(err, syncerr.ErrExternalEngine) {
				t.Errorf("Blocks(%q) error = %v, want ExternalEngine", tt.reply, err)
			}
		})
	}
}

func TestBlocks_Empty(t *testing.T) {
	for _, reply := range []string{"", "\n", "  \r\n"} {
		got, err := Blocks(reply)
		if err != nil || got != nil {
			t.Errorf("Blocks(%q) = %v, %v, want nil, nil", reply, got, err)
		}
	}
}

func TestBlocks_EmptyDataLine(t *testing.T) {
	for _, reply := range []string{"1\n\n", "1\n", "1\n   \n"} {
		got, err := Blocks(reply)
		if err != nil {
			t.Fatalf("Blocks(%q) error = %v", reply, err)
		}
		if len(got) != 1 || len(got[0]) != 1 || strings.TrimSpace(got[0][0]) != "" {
			t.Errorf("Blocks(%q) = %q, want one block with one blank line", reply, got)
		}
	}
}

func TestDecodeText_GBK(t *testing.T) {
	raw, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte("1\r\n{'id1': {'comment': '图纸'}}\r\n"))
	if err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}
	got, err := DecodeText(raw, models.EncodingGBK)
	if err != nil {
		t.Fatalf("DecodeText() error = %v", err)
	}
	want := "1\n{'id1': {'comment': '图纸'}}\n"
	if got != want {
		t.Errorf("DecodeText() = %q, want %q", got, want)
	}
}

func TestDecodeText_UnknownEncoding(t *testing.T) {
	if _, err := DecodeText([]byte("x"), "latin-9"); err == nil {
		t.Error("DecodeText() error = nil, want error for unknown encoding")
	}
}
