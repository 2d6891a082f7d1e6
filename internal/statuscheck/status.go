// Package statuscheck reports whether the tools and services a run may need are reachable.
package statuscheck

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"time"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/local/taskspares/internal/poppler"
)

// RedisPinger models the minimal Redis capability we need for status checks.
type RedisPinger interface {
	Ping(ctx context.Context) error
}

// BucketHeader is the part of the S3 client the bucket check uses.
type BucketHeader interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Options configures the Checker. Nil or empty fields skip that check.
type Options struct {
	TesseractCmd string
	PopplerPath  string
	// NeedPoppler marks the poppler binaries as required.
	NeedPoppler bool
	Redis       RedisPinger
	S3          BucketHeader
	S3Bucket    string
}

// Status represents the readiness of a subsystem.
type Status struct {
	Name     string `json:"name"`
	OK       bool   `json:"ok"`
	Required bool   `json:"required"`
	Message  string `json:"message"`
}

// Checker aggregates health checks for external dependencies.
type Checker struct {
	opts Options
}

func New(opts Options) *Checker {
	return &Checker{opts: opts}
}

// Summary runs every configured check in a fixed order.
func (c *Checker) Summary(ctx context.Context) []Status {
	out := []Status{c.checkTesseract()}
	for _, bin := range []string{"pdftotext", "pdftoppm"} {
		out = append(out, c.checkPoppler(bin))
	}
	if c.opts.Redis != nil {
		out = append(out, c.checkRedis(ctx))
	}
	if c.opts.S3 != nil && c.opts.S3Bucket != "" {
		out = append(out, c.checkS3(ctx))
	}
	return out
}

// Failed counts required checks that did not pass.
func Failed(sts []Status) int {
	n := 0
	for _, s := range sts {
		if s.Required && !s.OK {
			n++
		}
	}
	return n
}

// Render prints the statuses as a table.
func Render(w io.Writer, sts []Status) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Check", "Status", "Required", "Detail"})
	for _, s := range sts {
		state := "ok"
		if !s.OK {
			state = "FAIL"
		}
		req := ""
		if s.Required {
			req = "yes"
		}
		t.AppendRow(table.Row{s.Name, state, req, s.Message})
	}
	t.Render()
}

func (c *Checker) checkTesseract() Status {
	st := Status{Name: "tesseract", Required: true}
	path, err := exec.LookPath(c.opts.TesseractCmd)
	if err != nil {
		st.Message = trimError(err)
		return st
	}
	st.OK, st.Message = true, path
	return st
}

func (c *Checker) checkPoppler(bin string) Status {
	st := Status{Name: bin, Required: c.opts.NeedPoppler}
	path, err := poppler.Binary(c.opts.PopplerPath, bin)
	if err != nil {
		st.Message = trimError(err)
		return st
	}
	st.OK, st.Message = true, path
	return st
}

func (c *Checker) checkRedis(ctx context.Context) Status {
	st := Status{Name: "redis", Required: true}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.opts.Redis.Ping(ctx); err != nil {
		st.Message = trimError(err)
		return st
	}
	st.OK, st.Message = true, "Connected"
	return st
}

func (c *Checker) checkS3(ctx context.Context) Status {
	st := Status{Name: "s3://" + c.opts.S3Bucket, Required: true}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := c.opts.S3.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &c.opts.S3Bucket}); err != nil {
		st.Message = trimError(err)
		return st
	}
	st.OK, st.Message = true, "Connected"
	return st
}

const maxMessageRunes = 200

func trimError(err error) string {
	if err == nil {
		return ""
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	msg := err.Error()
	if utf8.RuneCountInString(msg) <= maxMessageRunes {
		return msg
	}
	return string([]rune(msg)[:maxMessageRunes])
}
