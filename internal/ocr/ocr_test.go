package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"
)

type fakeRenderer struct {
	fail map[int]bool
}

func (f *fakeRenderer) RenderPNG(_ context.Context, _ string, page, _ int) ([]byte, error) {
	if f.fail[page] {
		return nil, fmt.Errorf("render page %d", page)
	}
	return []byte(fmt.Sprintf("page-%d", page)), nil
}

type echoEngine struct{ err error }

func (e *echoEngine) Name() string { return "echo" }

func (e *echoEngine) Recognize(_ context.Context, png []byte) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	return "text of " + string(png), nil
}

func count(n int) func(string) (int, error) {
	return func(string) (int, error) { return n, nil }
}

func TestPageExtractorLimitsPages(t *testing.T) {
	p := &PageExtractor{Renderer: &fakeRenderer{}, Engine: &echoEngine{}, DPI: 300, Count: count(8)}
	got, err := p.PageTexts(context.Background(), "plan.pdf", 2)
	if err != nil {
		t.Fatalf("PageTexts() error = %v", err)
	}
	want := []string{"text of page-1", "text of page-2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("PageTexts() = %q, want %q", got, want)
	}
	if p.Name() != "ocr:echo" {
		t.Errorf("Name() = %q", p.Name())
	}
}

func TestPageExtractorSkipsFailedPage(t *testing.T) {
	p := &PageExtractor{Renderer: &fakeRenderer{fail: map[int]bool{2: true}}, Engine: &echoEngine{}, Count: count(3)}
	got, err := p.PageTexts(context.Background(), "plan.pdf", 0)
	if err != nil {
		t.Fatalf("PageTexts() error = %v", err)
	}
	if len(got) != 3 || got[1] != "" || got[2] != "text of page-3" {
		t.Fatalf("PageTexts() = %q", got)
	}
}

func TestPageExtractorAllPagesFail(t *testing.T) {
	p := &PageExtractor{Renderer: &fakeRenderer{}, Engine: &echoEngine{err: errors.New("bad image")}, Count: count(2)}
	_, err := p.PageTexts(context.Background(), "plan.pdf", 0)
	if err == nil || !strings.Contains(err.Error(), "bad image") {
		t.Fatalf("PageTexts() error = %v", err)
	}
}

func TestPageExtractorStopsOnMissingTool(t *testing.T) {
	missing := &ToolMissingError{Command: "tesseract", Err: errors.New("not found")}
	p := &PageExtractor{Renderer: &fakeRenderer{}, Engine: &echoEngine{err: missing}, Count: count(4)}
	_, err := p.PageTexts(context.Background(), "plan.pdf", 0)
	var target *ToolMissingError
	if !errors.As(err, &target) {
		t.Fatalf("PageTexts() error = %v, want ToolMissingError", err)
	}
}

func TestNewEngine(t *testing.T) {
	e, err := New("", Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	cli, ok := e.(*TesseractCLI)
	if !ok {
		t.Fatalf("New() = %T", e)
	}
	if cli.command != "tesseract" || cli.language != "eng" || cli.dpi != 300 {
		t.Errorf("defaults = %+v", cli)
	}
	if _, err := New("abbyy", Options{}); err == nil {
		t.Fatal("expected error for unknown engine")
	}
}

func TestTesseractCLICheckAvailable(t *testing.T) {
	cli := NewTesseractCLI(Options{Command: filepath.Join(t.TempDir(), "tesseract")})
	var missing *ToolMissingError
	if err := cli.CheckAvailable(); !errors.As(err, &missing) {
		t.Fatalf("CheckAvailable() error = %v, want ToolMissingError", err)
	}
}

func TestTesseractCLIRecognize(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixture")
	}
	bin := filepath.Join(t.TempDir(), "tesseract")
	script := "#!/bin/sh\nshift\necho \"$*\"\n"
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	cli := NewTesseractCLI(Options{Command: bin, Language: "deu", DPI: 200})
	if err := cli.CheckAvailable(); err != nil {
		t.Fatalf("CheckAvailable() error = %v", err)
	}
	got, err := cli.Recognize(context.Background(), []byte("png"))
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if strings.TrimSpace(got) != "stdout -l deu --dpi 200" {
		t.Fatalf("Recognize() = %q", got)
	}
}
