// Package store keeps per-job status in Redis hashes.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Job states.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusSuccess    = "success"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

type Status struct {
	Status   string         `json:"status"`
	Message  string         `json:"message"`
	ExitCode int            `json:"exit_code"`
	Start    *time.Time     `json:"start_time,omitempty"`
	End      *time.Time     `json:"end_time,omitempty"`
	Result   map[string]any `json:"result,omitempty"`
}

type RedisStatus struct {
	client *redis.Client
	keyNS  string
	ttl    time.Duration
}

// NewRedisStatus stores hashes under job:<id>:status, expiring after ttl
// (no expiry when ttl <= 0).
func NewRedisStatus(c *redis.Client, ttl time.Duration) *RedisStatus {
	return &RedisStatus{client: c, keyNS: "job", ttl: ttl}
}

func (s *RedisStatus) key(jobID string) string { return fmt.Sprintf("%s:%s:status", s.keyNS, jobID) }

func (s *RedisStatus) Set(ctx context.Context, jobID string, st Status) error {
	m := encode(st)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.key(jobID), m)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key(jobID), s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStatus) Get(ctx context.Context, jobID string) (Status, bool, error) {
	res, err := s.client.HGetAll(ctx, s.key(jobID)).Result()
	if err != nil {
		return Status{}, false, err
	}
	if len(res) == 0 {
		return Status{}, false, nil
	}
	return decode(res), true, nil
}

func encode(st Status) map[string]any {
	m := map[string]any{
		"status":    st.Status,
		"message":   st.Message,
		"exit_code": st.ExitCode,
	}
	if st.Start != nil {
		m["start"] = st.Start.Format(time.RFC3339Nano)
	}
	if st.End != nil {
		m["end"] = st.End.Format(time.RFC3339Nano)
	}
	if st.Result != nil {
		b, _ := json.Marshal(st.Result)
		m["result"] = string(b)
	}
	return m
}

func decode(res map[string]string) Status {
	st := Status{Status: res["status"], Message: res["message"]}
	if v, err := strconv.Atoi(res["exit_code"]); err == nil {
		st.ExitCode = v
	}
	if v := res["start"]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			st.Start = &t
		}
	}
	if v := res["end"]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			st.End = &t
		}
	}
	if v := res["result"]; v != "" {
		_ = json.Unmarshal([]byte(v), &st.Result)
	}
	return st
}
