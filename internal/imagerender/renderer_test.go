package imagerender

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestEncodePNGGray(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 200, G: 10, B: 10, A: 255})

	for _, gray := range []bool{true, false} {
		out, err := EncodePNG(img, gray)
		if err != nil {
			t.Fatalf("EncodePNG(gray=%v) error = %v", gray, err)
		}
		w, h, err := PNGSize(out)
		if err != nil {
			t.Fatalf("PNGSize() error = %v", err)
		}
		if w != 4 || h != 3 {
			t.Fatalf("dimensions = %dx%d, want 4x3", w, h)
		}
		decoded, err := png.Decode(bytes.NewReader(out))
		if err != nil {
			t.Fatal(err)
		}
		if _, isGray := decoded.(*image.Gray); isGray != gray {
			t.Errorf("gray=%v decoded as %T", gray, decoded)
		}
	}
}

func TestPNGSizeRejectsGarbage(t *testing.T) {
	if _, _, err := PNGSize([]byte("not a png")); err == nil {
		t.Fatal("expected error")
	}
}

func TestNew(t *testing.T) {
	if r, err := New("fitz", ""); err != nil || !r.(*FitzRenderer).Gray {
		t.Fatalf("New(fitz) = %#v, %v", r, err)
	}
	r, err := New("poppler", "/opt/poppler")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	p, ok := r.(*PopplerRenderer)
	if !ok || p.Dir != "/opt/poppler" || !p.Gray {
		t.Fatalf("New(poppler) = %#v", r)
	}
	if _, err := New("ghostscript", ""); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestPopplerRendererArgs(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixture")
	}
	dir := t.TempDir()
	script := "#!/bin/sh\nprintf '%s ' \"$@\"\n"
	if err := os.WriteFile(filepath.Join(dir, "pdftoppm"), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	r := &PopplerRenderer{Dir: dir, Gray: true}
	out, err := r.RenderPNG(context.Background(), "plan.pdf", 3, 300)
	if err != nil {
		t.Fatalf("RenderPNG() error = %v", err)
	}
	want := "-png -r 300 -f 3 -l 3 -singlefile -gray plan.pdf"
	if got := strings.TrimSpace(string(out)); got != want {
		t.Fatalf("args = %q, want %q", got, want)
	}
}

func TestPopplerRendererFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixture")
	}
	dir := t.TempDir()
	script := "#!/bin/sh\necho 'Syntax Error: broken file' >&2\nexit 1\n"
	if err := os.WriteFile(filepath.Join(dir, "pdftoppm"), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	r := &PopplerRenderer{Dir: dir}
	_, err := r.RenderPNG(context.Background(), "plan.pdf", 1, 150)
	if err == nil || !strings.Contains(err.Error(), "broken file") {
		t.Fatalf("RenderPNG() error = %v, want stderr in message", err)
	}
}
