package queue

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestJobValidate(t *testing.T) {
	neg := -1
	cases := []struct {
		name string
		job  Job
		ok   bool
	}{
		{"complete", Job{JobID: "j1", PDF: "s3://plans/pump.pdf"}, true},
		{"missing id", Job{PDF: "pump.pdf"}, false},
		{"missing pdf", Job{JobID: "j1", PDF: "  "}, false},
		{"negative pages", Job{JobID: "j1", PDF: "pump.pdf", Pages: &neg}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.job.Validate(); (err == nil) != tc.ok {
				t.Fatalf("Validate() error = %v, want ok=%v", err, tc.ok)
			}
		})
	}
}

func TestDecodeJob(t *testing.T) {
	j, err := DecodeJob([]byte(`{"job_id":"j1","pdf":"pump.pdf","pages":3,"mode":"ocr"}`))
	if err != nil {
		t.Fatalf("DecodeJob() error = %v", err)
	}
	if j.JobID != "j1" || j.Pages == nil || *j.Pages != 3 || j.Mode != "ocr" || j.Out != "" {
		t.Fatalf("DecodeJob() = %+v", j)
	}
	if _, err := DecodeJob([]byte("not json")); err == nil {
		t.Fatal("expected error for bad payload")
	}
}

// TestRedisQueueRoundTrip needs a disposable Redis; set TASKSPARES_TEST_REDIS_URL to run it.
func TestRedisQueueRoundTrip(t *testing.T) {
	url := os.Getenv("TASKSPARES_TEST_REDIS_URL")
	if url == "" {
		t.Skip("TASKSPARES_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	c, err := Connect(ctx, url)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Close()

	stream := "test:jobs:" + uuid.NewString()
	defer c.Del(ctx, stream, stream+":dlq", stream+":cancelled")

	q, err := NewRedisQueue(ctx, c, stream, "workers")
	if err != nil {
		t.Fatalf("NewRedisQueue() error = %v", err)
	}
	if _, err := NewRedisQueue(ctx, c, stream, "workers"); err != nil {
		t.Fatalf("second NewRedisQueue() error = %v", err)
	}

	if _, err := q.Enqueue(ctx, Job{JobID: "j1", PDF: "pump.pdf"}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	id, data, err := q.Dequeue(ctx, "c1", time.Second)
	if err != nil || id == "" {
		t.Fatalf("Dequeue() = %q, %v", id, err)
	}
	j, err := DecodeJob(data)
	if err != nil || j.JobID != "j1" {
		t.Fatalf("DecodeJob() = %+v, %v", j, err)
	}
	if err := q.Ack(ctx, id); err != nil {
		t.Fatalf("Ack() error = %v", err)
	}

	if err := q.CancelJob(ctx, "j2"); err != nil {
		t.Fatal(err)
	}
	if ok, err := q.IsCancelled(ctx, "j2"); err != nil || !ok {
		t.Fatalf("IsCancelled() = %v, %v", ok, err)
	}
	if ttl := c.TTL(ctx, q.CancelKey).Val(); ttl <= 0 || ttl > cancelTTL {
		t.Fatalf("cancel set TTL = %v", ttl)
	}
	if err := q.ClearCancelled(ctx, "j2"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := q.IsCancelled(ctx, "j2"); ok {
		t.Fatal("cancel mark still set after ClearCancelled")
	}

	if err := q.AddDLQ(ctx, data, "boom"); err != nil {
		t.Fatal(err)
	}
	pending, dlq, err := q.Depths(ctx)
	if err != nil || pending != 1 || dlq != 1 {
		t.Fatalf("Depths() = %d, %d, %v", pending, dlq, err)
	}
}
