package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestResolveRelativeToDataDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "pump.pdf"), []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := &Resolver{DataDir: dir}
	l, err := r.Resolve(context.Background(), "pump.pdf")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if l.Path != filepath.Join(dir, "pump.pdf") || l.Remote || l.Stem() != "pump" {
		t.Fatalf("Resolve() = %+v", l)
	}
	l.Cleanup()
	if _, err := os.Stat(l.Path); err != nil {
		t.Fatalf("Cleanup removed a local input: %v", err)
	}
}

func TestResolveMissing(t *testing.T) {
	r := &Resolver{}
	_, err := r.Resolve(context.Background(), "file://"+filepath.Join(t.TempDir(), "gone.pdf"))
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Resolve() error = %v, want NotFoundError", err)
	}
}

func TestResolveHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/plans/pump.pdf" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("%PDF-1.4 body"))
	}))
	defer srv.Close()

	r := &Resolver{HTTP: srv.Client()}
	l, err := r.Resolve(context.Background(), srv.URL+"/plans/pump.pdf?sig=abc")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !l.Remote || l.Name != "pump.pdf" {
		t.Fatalf("Resolve() = %+v", l)
	}
	data, err := os.ReadFile(l.Path)
	if err != nil || string(data) != "%PDF-1.4 body" {
		t.Fatalf("downloaded = %q, %v", data, err)
	}
	l.Cleanup()
	if _, err := os.Stat(l.Path); !os.IsNotExist(err) {
		t.Fatalf("temp file not removed: %v", err)
	}

	if _, err := r.Resolve(context.Background(), srv.URL+"/missing.pdf"); err == nil {
		t.Fatal("expected error for 404")
	}
}

type fakeS3 struct{ path string }

func (f fakeS3) DownloadToTemp(context.Context, string) (string, error) { return f.path, nil }

func TestResolveS3(t *testing.T) {
	if _, err := (&Resolver{}).Resolve(context.Background(), "s3://plans/pump.pdf"); err == nil {
		t.Fatal("expected error without storage")
	}

	tmp := filepath.Join(t.TempDir(), "dl.pdf")
	r := &Resolver{S3: fakeS3{path: tmp}}
	l, err := r.Resolve(context.Background(), "s3://plans/site/pump.pdf")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if l.Path != tmp || l.Name != "pump.pdf" || !l.Remote {
		t.Fatalf("Resolve() = %+v", l)
	}
}
