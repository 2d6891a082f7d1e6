package metrics

import (
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWriteTextfile(t *testing.T) {
	Init()
	Init()

	ObserveRun("ocr", "success", 1500*time.Millisecond)
	AddExtracted("ocr", 5, 12, 7)
	IncJob("dlq")

	path := filepath.Join(t.TempDir(), "taskspares.prom")
	if err := WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{
		`taskspares_runs_total{mode="ocr",result="success"}`,
		`taskspares_pages_processed_total{mode="ocr"}`,
		`taskspares_rows_extracted_total{sheet="spares"}`,
		`taskspares_jobs_total{result="dlq"}`,
		`taskspares_run_duration_seconds_bucket{mode="ocr",le="2.5"}`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("textfile missing %s", want)
		}
	}
}

func TestHandler(t *testing.T) {
	Init()
	SetQueueDepth("stream", 3)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `taskspares_queue_depth{type="stream"} 3`) {
		t.Fatalf("handler output missing queue depth:\n%s", body)
	}
}
