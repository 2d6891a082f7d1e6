package pdftest

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
)

type fakeDoc struct {
	pages  []string
	failAt map[int]bool
	reads  []int
}

func (d *fakeDoc) NumPage() int { return len(d.pages) }
func (d *fakeDoc) Close() error { return nil }

func (d *fakeDoc) Text(i int) (string, error) {
	d.reads = append(d.reads, i)
	if d.failAt[i] {
		return "", errors.New("corrupt page")
	}
	return d.pages[i], nil
}

type fakeOpener struct{ doc *fakeDoc }

func (o fakeOpener) Open(string) (Doc, error) { return o.doc, nil }

func TestCheckTextLayer(t *testing.T) {
	doc := &fakeDoc{pages: []string{strings.Repeat("Task Code ", 40), "", ""}}
	ok, diag, err := NewWithOpener(fakeOpener{doc}).Check(context.Background(), "plan.pdf", 0)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !ok || diag.Threshold != DefaultThreshold {
		t.Fatalf("Check() = %v, %+v", ok, diag)
	}
	if len(doc.reads) != 1 {
		t.Errorf("expected early exit after first page, read %v", doc.reads)
	}
}

func TestCheckScanned(t *testing.T) {
	doc := &fakeDoc{pages: []string{"  \n", "12", " \t"}, failAt: map[int]bool{2: true}}
	ok, diag, err := NewWithOpener(fakeOpener{doc}).Check(context.Background(), "scan.pdf", 10)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if ok || diag.TotalCharsInSample != 2 {
		t.Fatalf("Check() = %v, chars %d", ok, diag.TotalCharsInSample)
	}
	if !strings.Contains(diag.Summary(), "page 3: corrupt page") {
		t.Errorf("Summary() = %q", diag.Summary())
	}
}

func TestSampleIndices(t *testing.T) {
	p := &Prober{rnd: rand.New(rand.NewSource(1))}
	if got := p.sampleIndices(3); len(got) != 3 || got[2] != 2 {
		t.Fatalf("sampleIndices(3) = %v", got)
	}
	got := p.sampleIndices(40)
	if len(got) != 5 || got[0] != 0 || got[4] != 39 {
		t.Fatalf("sampleIndices(40) = %v", got)
	}
	hasMid := false
	for i, v := range got {
		if v == 20 {
			hasMid = true
		}
		if i > 0 && got[i-1] >= v {
			t.Fatalf("indices not sorted/unique: %v", got)
		}
	}
	if !hasMid {
		t.Errorf("middle page missing: %v", got)
	}
}
