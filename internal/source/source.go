// Package source turns an input reference into a local PDF file.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog/log"
)

// NotFoundError reports a local input that does not exist.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("input file not found: %s", e.Path)
}

// Downloader fetches s3:// objects to a temp file.
type Downloader interface {
	DownloadToTemp(ctx context.Context, url string) (string, error)
}

// Local is a resolved input on the local filesystem.
type Local struct {
	// Ref is the reference as given.
	Ref  string
	Path string
	// Name is the base name of the original reference.
	Name   string
	Remote bool
}

// Cleanup removes downloaded temp files. Local inputs are left alone.
func (l Local) Cleanup() {
	if l.Remote && l.Path != "" {
		if err := os.Remove(l.Path); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", l.Path).Msg("failed to remove temp input")
		}
	}
}

// Stem is Name without its extension.
func (l Local) Stem() string {
	return strings.TrimSuffix(l.Name, filepath.Ext(l.Name))
}

// Resolver resolves references. S3 is optional; s3:// refs fail without it.
type Resolver struct {
	DataDir string
	S3      Downloader
	HTTP    *http.Client
}

// Resolve supports:
// - file://path or absolute/relative filesystem paths (relative to DataDir when set)
// - http(s):// URLs (downloads to temp)
// - s3://bucket/key (downloads to temp)
func (r *Resolver) Resolve(ctx context.Context, ref string) (Local, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case strings.HasPrefix(ref, "s3://"):
		if r.S3 == nil {
			return Local{}, fmt.Errorf("s3 input %s needs storage configuration", ref)
		}
		p, err := r.S3.DownloadToTemp(ctx, ref)
		if err != nil {
			return Local{}, err
		}
		return Local{Ref: ref, Path: p, Name: path.Base(ref), Remote: true}, nil

	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		p, err := r.downloadHTTP(ctx, ref)
		if err != nil {
			return Local{}, err
		}
		name := path.Base(strings.SplitN(ref, "?", 2)[0])
		return Local{Ref: ref, Path: p, Name: name, Remote: true}, nil
	}

	p := strings.TrimPrefix(ref, "file://")
	if !filepath.IsAbs(p) && r.DataDir != "" {
		p = filepath.Join(r.DataDir, p)
	}
	st, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return Local{}, &NotFoundError{Path: p}
		}
		return Local{}, fmt.Errorf("stat input: %w", err)
	}
	if st.IsDir() {
		return Local{}, fmt.Errorf("input %s is a directory", p)
	}
	return Local{Ref: ref, Path: p, Name: filepath.Base(p)}, nil
}

func (r *Resolver) downloadHTTP(ctx context.Context, url string) (string, error) {
	client := r.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: http %d", url, resp.StatusCode)
	}

	f, err := os.CreateTemp("", "pdfdl-*.pdf")
	if err != nil {
		return "", err
	}
	defer f.Close()
	n, err := io.Copy(f, resp.Body)
	if err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("download %s: %w", url, err)
	}
	log.Info().Str("url", url).Int64("bytes", n).Str("file", filepath.Base(f.Name())).Msg("downloaded pdf to temp")
	return f.Name(), nil
}

// PageCount returns the number of pages using pdfcpu.
func PageCount(pdfPath string) (int, error) {
	n, err := api.PageCountFile(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("pdf page count failed: %w", err)
	}
	return n, nil
}
