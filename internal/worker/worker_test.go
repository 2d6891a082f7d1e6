package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/local/taskspares/internal/config"
	"github.com/local/taskspares/internal/extract"
	"github.com/local/taskspares/internal/maintenance"
	"github.com/local/taskspares/internal/queue"
	"github.com/local/taskspares/internal/store"
)

type fakeQueue struct {
	mu        sync.Mutex
	msgs      [][]byte
	acked     []string
	dlq       []string
	cancelled map[string]bool
	cleared   []string
	seq       int
}

func (q *fakeQueue) Dequeue(ctx context.Context, _ string, timeout time.Duration) (string, []byte, error) {
	q.mu.Lock()
	if len(q.msgs) > 0 {
		m := q.msgs[0]
		q.msgs = q.msgs[1:]
		q.seq++
		id := string(rune('0' + q.seq))
		q.mu.Unlock()
		return id, m, nil
	}
	q.mu.Unlock()
	select {
	case <-ctx.Done():
		return "", nil, ctx.Err()
	case <-time.After(timeout):
		return "", nil, nil
	}
}

func (q *fakeQueue) Ack(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.acked = append(q.acked, id)
	return nil
}

func (q *fakeQueue) AddDLQ(_ context.Context, _ []byte, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dlq = append(q.dlq, reason)
	return nil
}

func (q *fakeQueue) IsCancelled(_ context.Context, id string) (bool, error) {
	return q.cancelled[id], nil
}

func (q *fakeQueue) ClearCancelled(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.cleared = append(q.cleared, id)
	return nil
}

func (q *fakeQueue) counts() (int, int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.acked), len(q.dlq)
}

type fakeStatus struct {
	mu   sync.Mutex
	last map[string]store.Status
}

func (s *fakeStatus) Set(_ context.Context, id string, st store.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		s.last = map[string]store.Status{}
	}
	s.last[id] = st
	return nil
}

func (s *fakeStatus) get(id string) store.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last[id]
}

func encode(t *testing.T, j queue.Job) []byte {
	t.Helper()
	b, err := j.Encode()
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestJobConfig(t *testing.T) {
	base := config.ExtractConfig{Mode: config.ModeAuto, OutPath: "default.xlsx", OCRDPI: 300}
	pages := 3
	cfg := JobConfig(base, queue.Job{JobID: "j", PDF: "pump.pdf", Pages: &pages, Mode: "ocr"})
	if cfg.PDFPath != "pump.pdf" || cfg.OutPath != "" || !cfg.PagesSet || cfg.Pages != 3 || cfg.Mode != "ocr" || cfg.OCRDPI != 300 {
		t.Fatalf("JobConfig() = %+v", cfg)
	}
	cfg = JobConfig(base, queue.Job{JobID: "j", PDF: "pump.pdf"})
	if cfg.PagesSet || cfg.Mode != config.ModeAuto {
		t.Fatalf("JobConfig() without overrides = %+v", cfg)
	}
}

func TestWorkerProcessesJobs(t *testing.T) {
	q := &fakeQueue{
		msgs: [][]byte{
			encode(t, queue.Job{JobID: "ok", PDF: "pump.pdf"}),
			encode(t, queue.Job{JobID: "bad", PDF: "missing.pdf"}),
			[]byte("{not json"),
			encode(t, queue.Job{JobID: "skip", PDF: "pump.pdf"}),
		},
		cancelled: map[string]bool{"skip": true},
	}
	st := &fakeStatus{}

	var mu sync.Mutex
	var ran []string
	run := func(_ context.Context, cfg config.ExtractConfig) (*extract.Result, error) {
		mu.Lock()
		ran = append(ran, cfg.PDFPath)
		mu.Unlock()
		if cfg.PDFPath == "missing.pdf" {
			return nil, &extract.PreconditionError{Kind: extract.KindInputNotFound, Message: "PDF file not found: missing.pdf"}
		}
		return &extract.Result{Output: "pump_tasks_spares.xlsx", Mode: "text", Tasks: make([]*maintenance.Task, 4)}, nil
	}

	w := New(Config{Concurrency: 1, BlockFor: 10 * time.Millisecond}, config.ExtractConfig{}, q, st, run)
	w.Start(context.Background())

	deadline := time.Now().Add(5 * time.Second)
	for {
		if acked, _ := q.counts(); acked == 4 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for jobs")
		}
		time.Sleep(5 * time.Millisecond)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := w.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if _, dlq := q.counts(); dlq != 2 {
		t.Errorf("dlq entries = %d, want 2 (failed run + bad payload)", dlq)
	}
	if len(ran) != 2 {
		t.Errorf("runs = %v, cancelled job must not run", ran)
	}

	if s := st.get("ok"); s.Status != store.StatusSuccess || s.Result["tasks"] != 4 || s.End == nil {
		t.Errorf("ok status = %+v", s)
	}
	if s := st.get("bad"); s.Status != store.StatusFailed || s.ExitCode != extract.ExitUsage {
		t.Errorf("bad status = %+v", s)
	}
	if s := st.get("skip"); s.Status != store.StatusCancelled {
		t.Errorf("skip status = %+v", s)
	}
	if len(q.cleared) != 1 || q.cleared[0] != "skip" {
		t.Errorf("cleared cancel marks = %v, want [skip]", q.cleared)
	}
}

func TestStopWaitsForLoops(t *testing.T) {
	q := &fakeQueue{}
	w := New(Config{Concurrency: 3, BlockFor: time.Hour}, config.ExtractConfig{}, q, nil,
		func(context.Context, config.ExtractConfig) (*extract.Result, error) { return nil, errors.New("unused") })
	w.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := w.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}
