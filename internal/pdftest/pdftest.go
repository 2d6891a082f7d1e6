// Package pdftest decides whether a PDF carries a usable text layer or needs OCR.
package pdftest

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"
	"unicode"
)

// PageProbe captures the result of probing a single PDF page.
type PageProbe struct {
	PageIndex int    `json:"page_index"`
	CharCount int    `json:"char_count"`
	Err       string `json:"err,omitempty"`
}

// Diagnostics explains a probe decision.
type Diagnostics struct {
	FilePath           string      `json:"file_path"`
	TotalPages         int         `json:"total_pages"`
	SampledPages       []int       `json:"sampled_pages"`
	TotalCharsInSample int         `json:"total_chars_in_sample"`
	Threshold          int         `json:"threshold"`
	Probes             []PageProbe `json:"probes"`
	HasExtractableText bool        `json:"has_extractable_text"`
	DurationMs         int64       `json:"duration_ms"`
}

// DefaultThreshold is used when a non-positive threshold is passed in.
const DefaultThreshold = 300

// Doc abstracts a PDF document for text probing.
type Doc interface {
	NumPage() int
	Text(i int) (string, error)
	Close() error
}

// Opener abstracts opening a PDF path into a Doc.
type Opener interface {
	Open(path string) (Doc, error)
}

// Prober samples pages of a document and counts their visible characters.
type Prober struct {
	opener Opener
	rnd    *rand.Rand
}

// New returns a prober backed by go-fitz.
func New() *Prober {
	return NewWithOpener(fitzOpener{})
}

// NewWithOpener allows swapping the document backend.
func NewWithOpener(o Opener) *Prober {
	return &Prober{opener: o, rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// HasExtractableText checks a PDF with the default prober.
// If threshold <= 0, DefaultThreshold is used.
func HasExtractableText(ctx context.Context, pdfPath string, threshold int) (bool, *Diagnostics, error) {
	return New().Check(ctx, pdfPath, threshold)
}

// Check samples up to five pages and stops as soon as the threshold is reached.
func (p *Prober) Check(ctx context.Context, pdfPath string, threshold int) (bool, *Diagnostics, error) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if p.opener == nil {
		return false, nil, errors.New("no PDF opener configured")
	}

	start := time.Now()
	d, err := p.opener.Open(pdfPath)
	if err != nil {
		return false, nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer d.Close()

	total := d.NumPage()
	diag := &Diagnostics{
		FilePath:     pdfPath,
		TotalPages:   total,
		SampledPages: p.sampleIndices(total),
		Threshold:    threshold,
	}

	for _, idx := range diag.SampledPages {
		if err := ctx.Err(); err != nil {
			return false, nil, err
		}
		probe := PageProbe{PageIndex: idx}
		text, err := d.Text(idx)
		if err != nil {
			probe.Err = err.Error()
			diag.Probes = append(diag.Probes, probe)
			continue
		}
		probe.CharCount = visibleRunes(text)
		diag.TotalCharsInSample += probe.CharCount
		diag.Probes = append(diag.Probes, probe)

		if diag.TotalCharsInSample >= threshold {
			break
		}
	}

	diag.HasExtractableText = diag.TotalCharsInSample >= threshold
	diag.DurationMs = time.Since(start).Milliseconds()
	return diag.HasExtractableText, diag, nil
}

// Summary renders the diagnostics on one line for logs.
func (d *Diagnostics) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d/%d chars over pages %v of %d", d.TotalCharsInSample, d.Threshold, d.SampledPages, d.TotalPages)
	for _, pr := range d.Probes {
		if pr.Err != "" {
			fmt.Fprintf(&b, "; page %d: %s", pr.PageIndex+1, pr.Err)
		}
	}
	return b.String()
}

func visibleRunes(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

// sampleIndices picks pages 0, mid and last plus random distinct pages up to
// five. Documents of five pages or fewer are sampled entirely.
func (p *Prober) sampleIndices(total int) []int {
	if total <= 0 {
		return []int{}
	}
	if total <= 5 {
		idx := make([]int, total)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}

	picked := map[int]struct{}{0: {}, total / 2: {}, total - 1: {}}
	for len(picked) < 5 {
		picked[p.rnd.Intn(total)] = struct{}{}
	}

	out := make([]int, 0, len(picked))
	for i := range picked {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}
