package extract

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/local/taskspares/internal/config"
	"github.com/local/taskspares/internal/pdftest"
	"github.com/local/taskspares/internal/workbook"
)

var reportPage = strings.Join([]string{
	"Asset: 9000171371 TP A3/F-040V Transfer Pump",
	"Task Code Trade Task Action Task Description Doc Ref Interval",
	`1 Pre-Maintenance Checks: (9000171371) Pump Set \ [648575-0400] Drive End (4410)`,
	"*9465150 ENGR Check Check coupling alignment No reference 1000 Hours",
	"*9465160 TECH Check Check Warning labels MM 1000 Hours",
	"Part No Part Description Task Code Task Action Component Tree Path Qty Required Unit Of Measure",
	"1234567-0001 O-Ring seal kit *9465150 Check Pump Set Drive End 2 EA",
	"Printed by: jsmith 01/02/2024",
}, "\n")

type fakeExtractor struct {
	name   string
	pages  []string
	calls  int
	gotMax int
}

func (f *fakeExtractor) Name() string { return f.name }

func (f *fakeExtractor) PageTexts(_ context.Context, _ string, maxPages int) ([]string, error) {
	f.calls++
	f.gotMax = maxPages
	return f.pages, nil
}

type fakeProber struct{ hasText bool }

func (p fakeProber) Check(context.Context, string, int) (bool, *pdftest.Diagnostics, error) {
	return p.hasText, &pdftest.Diagnostics{}, nil
}

type fakeUploader struct {
	url         string
	data        []byte
	contentType string
}

func (u *fakeUploader) Upload(_ context.Context, url string, data []byte, contentType string) error {
	u.url, u.data, u.contentType = url, data, contentType
	return nil
}

// clearEnv resets every variable the extraction config reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PDF_PATH", "OUT_PATH", "DATA_DIR", "EXTRACT_MODE", "PAGES", "TESSERACT_CMD",
		"POPPLER_PATH", "TEXT_BACKEND", "RENDER_BACKEND", "OCR_ENGINE", "OCR_LANG", "OCR_DPI",
	} {
		t.Setenv(k, "")
	}
}

func writePDF(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestRunMissingPDFPath(t *testing.T) {
	clearEnv(t)
	_, err := Run(context.Background(), config.FromEnv().Extract, Deps{})
	if !IsPrecondition(err, KindMissingPDFPath) {
		t.Fatalf("Run() error = %v, want missing PDF_PATH", err)
	}
	if ExitCode(err) != ExitUsage {
		t.Errorf("ExitCode() = %d, want %d", ExitCode(err), ExitUsage)
	}
	if !strings.Contains(err.Error(), "PDF_PATH") {
		t.Errorf("message does not name PDF_PATH: %v", err)
	}
}

func TestRunMissingInput(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("PDF_PATH", "missing.pdf")

	_, err := Run(context.Background(), config.FromEnv().Extract, Deps{})
	if !IsPrecondition(err, KindInputNotFound) {
		t.Fatalf("Run() error = %v, want input not found", err)
	}
	if ExitCode(err) != ExitUsage || !strings.Contains(err.Error(), "missing.pdf") {
		t.Errorf("ExitCode() = %d, message %q", ExitCode(err), err)
	}
}

func TestRunMissingOCRTool(t *testing.T) {
	clearEnv(t)
	t.Setenv("PDF_PATH", "plan.pdf")
	t.Setenv("EXTRACT_MODE", "ocr")
	t.Setenv("TESSERACT_CMD", filepath.Join(t.TempDir(), "no-such-tesseract"))

	_, err := Run(context.Background(), config.FromEnv().Extract, Deps{})
	if !IsPrecondition(err, KindMissingTool) {
		t.Fatalf("Run() error = %v, want missing tool", err)
	}
	if ExitCode(err) != ExitMissingTool {
		t.Errorf("ExitCode() = %d, want %d", ExitCode(err), ExitMissingTool)
	}
	if !strings.Contains(err.Error(), "TESSERACT_CMD") {
		t.Errorf("message does not name TESSERACT_CMD: %v", err)
	}
}

func TestRunMissingPoppler(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixture")
	}
	clearEnv(t)
	dir := t.TempDir()
	tess := filepath.Join(dir, "tesseract")
	if err := os.WriteFile(tess, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PDF_PATH", "plan.pdf")
	t.Setenv("EXTRACT_MODE", "ocr")
	t.Setenv("TESSERACT_CMD", tess)
	t.Setenv("RENDER_BACKEND", "poppler")
	t.Setenv("POPPLER_PATH", t.TempDir())

	_, err := Run(context.Background(), config.FromEnv().Extract, Deps{})
	if ExitCode(err) != ExitMissingTool || !strings.Contains(err.Error(), "POPPLER_PATH") {
		t.Fatalf("Run() error = %v (exit %d)", err, ExitCode(err))
	}
}

func TestRunRejectsNonPDF(t *testing.T) {
	clearEnv(t)
	p := filepath.Join(t.TempDir(), "plan.pdf")
	if err := os.WriteFile(p, []byte("just some text\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PDF_PATH", p)

	_, err := Run(context.Background(), config.FromEnv().Extract, Deps{Text: &fakeExtractor{}})
	if !IsPrecondition(err, KindNotPDF) || ExitCode(err) != ExitUsage {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestRunTextModeWritesWorkbook(t *testing.T) {
	clearEnv(t)
	pdf := writePDF(t, t.TempDir(), "pump plan.pdf")
	t.Setenv("PDF_PATH", pdf)
	t.Setenv("EXTRACT_MODE", "text")

	text := &fakeExtractor{name: "fake", pages: []string{reportPage}}
	var progress bytes.Buffer
	res, err := Run(context.Background(), config.FromEnv().Extract, Deps{Text: text, Progress: &progress})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	wantOut := filepath.Join(filepath.Dir(pdf), "pump plan_tasks_spares.xlsx")
	if res.Output != wantOut {
		t.Errorf("Output = %q, want %q", res.Output, wantOut)
	}
	if res.Mode != config.ModeText || res.Pages != 1 || len(res.Tasks) != 2 || len(res.Spares) != 1 {
		t.Fatalf("Result = %+v", res)
	}
	if text.gotMax != 0 {
		t.Errorf("text mode page budget = %d, want all pages", text.gotMax)
	}

	for _, line := range []string{
		"Reading PDF: " + pdf,
		"Extracted 2 task rows.",
		"Extracted 1 spare part rows.",
		"Saved Excel file: " + wantOut,
	} {
		if !strings.Contains(progress.String(), line) {
			t.Errorf("progress missing %q:\n%s", line, progress.String())
		}
	}

	f, err := excelize.OpenFile(wantOut)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer f.Close()
	if v, _ := f.GetCellValue(workbook.TasksSheet, "B3"); v != "9465160" {
		t.Errorf("Tasks!B3 = %q", v)
	}
	if v, _ := f.GetCellValue(workbook.SparesSheet, "A2"); v != "9465150" {
		t.Errorf("SpareParts!A2 = %q", v)
	}
}

func TestRunAutoFallsBackToOCR(t *testing.T) {
	clearEnv(t)
	t.Setenv("PDF_PATH", writePDF(t, t.TempDir(), "scan.pdf"))
	t.Setenv("OUT_PATH", filepath.Join(t.TempDir(), "out.xlsx"))

	text := &fakeExtractor{name: "text"}
	scan := &fakeExtractor{name: "ocr", pages: []string{reportPage}}
	res, err := Run(context.Background(), config.FromEnv().Extract, Deps{
		Prober: fakeProber{hasText: false},
		Text:   text,
		OCR:    scan,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Mode != config.ModeOCR || text.calls != 0 || scan.calls != 1 {
		t.Fatalf("mode %s, text calls %d, ocr calls %d", res.Mode, text.calls, scan.calls)
	}
	if scan.gotMax != config.DefaultOCRPages {
		t.Errorf("ocr page budget = %d, want %d", scan.gotMax, config.DefaultOCRPages)
	}
}

func TestRunForwardsPages(t *testing.T) {
	clearEnv(t)
	t.Setenv("PDF_PATH", writePDF(t, t.TempDir(), "plan.pdf"))
	t.Setenv("OUT_PATH", filepath.Join(t.TempDir(), "out.xlsx"))
	t.Setenv("PAGES", "12")

	text := &fakeExtractor{name: "text", pages: []string{reportPage}}
	if _, err := Run(context.Background(), config.FromEnv().Extract, Deps{Prober: fakeProber{hasText: true}, Text: text}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if text.gotMax != 12 {
		t.Fatalf("page budget = %d, want 12", text.gotMax)
	}
}

func TestRunUploadsToS3(t *testing.T) {
	clearEnv(t)
	t.Setenv("PDF_PATH", writePDF(t, t.TempDir(), "plan.pdf"))
	t.Setenv("OUT_PATH", "s3://reports/site-a/plan.xlsx")
	t.Setenv("EXTRACT_MODE", "text")

	up := &fakeUploader{}
	deps := Deps{Text: &fakeExtractor{pages: []string{reportPage}}, Uploader: up}
	res, err := Run(context.Background(), config.FromEnv().Extract, deps)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if up.url != res.Output || up.url != "s3://reports/site-a/plan.xlsx" {
		t.Fatalf("uploaded to %q", up.url)
	}
	if up.contentType != xlsxContentType || !bytes.HasPrefix(up.data, []byte("PK")) {
		t.Fatalf("upload content type %q, %d bytes", up.contentType, len(up.data))
	}

	deps.Uploader = nil
	if _, err := Run(context.Background(), config.FromEnv().Extract, deps); err == nil || ExitCode(err) != ExitFailure {
		t.Fatalf("Run() without uploader error = %v", err)
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{precondition(KindMissingPDFPath, nil, "x"), ExitUsage},
		{precondition(KindNotPDF, nil, "x"), ExitUsage},
		{precondition(KindMissingTool, nil, "x"), ExitMissingTool},
		{context.DeadlineExceeded, ExitFailure},
	}
	for _, c := range cases {
		if got := ExitCode(c.err); got != c.want {
			t.Errorf("ExitCode(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestPageCounterFollowsRenderBackend(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.pdf")
	cases := []struct {
		backend string
		want    string
	}{
		{config.BackendFitz, "failed to open PDF"},
		{config.BackendPoppler, "pdf page count failed"},
	}
	for _, tc := range cases {
		_, err := pageCounter(tc.backend)(missing)
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Errorf("pageCounter(%s) error = %v, want %q", tc.backend, err, tc.want)
		}
	}
}
