package convert

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/dtnitsch/drawing-sync/models"
	"github.com/dtnitsch/drawing-sync/pkg/syncerr"
)

type inkscapeStub struct {
	write bool
	err   error
	args  []string
}

func (s *inkscapeStub) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	s.args = args
	if s.write {
		dst := args[len(args)-1][len("--export-filename="):]
		if err := os.WriteFile(dst, []byte("%PDF-1.5"), 0o644); err != nil {
			return nil, err
		}
	}
	return nil, s.err
}

func TestInkscape_Convert(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "page.svg")
	dst := filepath.Join(dir, "page.pdf")

	tests := []struct {
		name    string
		stub    *inkscapeStub
		wantErr bool
	}{
		{name: "success", stub: &inkscapeStub{write: true}},
		{name: "non-zero exit", stub: &inkscapeStub{write: true, err: errors.New("exit status 1")}, wantErr: true},
		{name: "exit zero without output", stub: &inkscapeStub{}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Remove(dst)
			err := NewInkscape("inkscape", tt.stub, nil).Convert(context.Background(), src, dst)
			if tt.wantErr {
				if !errors.Is(err, syncerr.ErrConverter) {
					t.Errorf("Convert() error = %v, want ErrConverter", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Convert() error = %v", err)
			}
			if tt.stub.args[0] != src || tt.stub.args[1] != "--export-type=pdf" {
				t.Errorf("inkscape args = %v", tt.stub.args)
			}
		})
	}
}

func TestNew_SelectsConverter(t *testing.T) {
	cfg := models.DefaultConfig()
	c, err := New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, ok := c.(*Inkscape); !ok {
		t.Errorf("New() = %T, want *Inkscape", c)
	}

	cfg.Converter = models.ConverterChrome
	c, err = New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, ok := c.(*Chrome); !ok {
		t.Errorf("New() = %T, want *Chrome", c)
	}

	cfg.Converter = "gimp"
	if _, err := New(cfg, nil, nil); err == nil {
		t.Error("New() error = nil, want error for unknown converter")
	}
}

func TestLengthInches(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "960", want: 10},
		{in: "72pt", want: 1},
		{in: "25.4mm", want: 1},
		{in: "2in", want: 2},
		{in: "", wantErr: true},
		{in: "100%", wantErr: true},
		{in: "0", wantErr: true},
	}
	for _, tt := range tests {
		got, err := lengthInches(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("lengthInches(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("lengthInches(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
