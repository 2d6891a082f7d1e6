package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/axiomhq/axiom-go/axiom"
	"github.com/axiomhq/axiom-go/axiom/ingest"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

const serviceName = "taskspares"

// Options defines logger initialization parameters.
type Options struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool

	// Console receives human-facing log output. Defaults to stderr so stdout
	// stays free for command output.
	Console io.Writer

	// Axiom
	SendToAxiom  bool
	AxiomAPIKey  string
	AxiomOrgID   string
	AxiomDataset string
	AxiomFlush   time.Duration
	AxiomBatch   int
}

var (
	global zerolog.Logger
	ax     *axiomClient
)

// Init sets up the global logger: console, optional rotated file, optional Axiom forwarding.
func Init(opts Options) error {
	var writers []io.Writer

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return fmt.Errorf("create logs dir: %w", err)
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		})
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	if opts.Pretty {
		writers = append(writers, zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339})
	} else {
		writers = append(writers, console)
	}

	// Optional Axiom writer (info+)
	if opts.SendToAxiom && opts.AxiomAPIKey != "" {
		client, err := newAxiomClient(opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Axiom disabled: %v\n", err)
		} else {
			ax = client
			writers = append(writers, &axiomWriter{client: client})
		}
	}

	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		lvl = zerolog.InfoLevel
	}

	global = zerolog.New(io.MultiWriter(writers...)).Level(lvl).With().Timestamp().Str("service", serviceName).Logger()
	log.Logger = global
	return nil
}

// Close flushes any buffered external loggers.
func Close() {
	if ax != nil {
		_ = ax.Close()
		ax = nil
	}
}

// Get returns the global logger.
func Get() *zerolog.Logger { return &global }

// axiomWriter forwards zerolog JSON lines to Axiom (dropping debug level).
type axiomWriter struct{ client *axiomClient }

func (w *axiomWriter) Write(p []byte) (int, error) {
	var ev map[string]interface{}
	if err := json.Unmarshal(p, &ev); err != nil {
		ev = map[string]interface{}{"message": string(p), "level": "info"}
	}
	if lvl, ok := ev["level"].(string); ok && lvl == "debug" {
		return len(p), nil
	}
	if _, ok := ev[ingest.TimestampField]; !ok {
		ev[ingest.TimestampField] = time.Now()
	}
	w.client.Send(axiom.Event(ev))
	return len(p), nil
}

// eventIngester is the part of the Axiom client the forwarder uses.
type eventIngester interface {
	IngestEvents(ctx context.Context, id string, events []axiom.Event, options ...ingest.Option) (*ingest.Status, error)
}

// axiomClient batches events and ingests them when a batch fills up, on a
// ticker, and once more on Close.
type axiomClient struct {
	ingester   eventIngester
	dataset    string
	batchSize  int
	flushEvery time.Duration

	ch     chan axiom.Event
	batch  []axiom.Event
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func newAxiomClient(opts Options) (*axiomClient, error) {
	copts := []axiom.Option{axiom.SetToken(opts.AxiomAPIKey)}
	if opts.AxiomOrgID != "" {
		copts = append(copts, axiom.SetOrganizationID(opts.AxiomOrgID))
	}
	c, err := axiom.NewClient(copts...)
	if err != nil {
		return nil, err
	}
	return startForwarder(c, opts.AxiomDataset, opts.AxiomBatch, opts.AxiomFlush), nil
}

func startForwarder(ing eventIngester, dataset string, batchSize int, flushEvery time.Duration) *axiomClient {
	if dataset == "" {
		dataset = "dev_" + serviceName
	}
	if batchSize <= 0 {
		batchSize = 200
	}
	if flushEvery <= 0 {
		flushEvery = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	a := &axiomClient{
		ingester:   ing,
		dataset:    dataset,
		batchSize:  batchSize,
		flushEvery: flushEvery,
		ch:         make(chan axiom.Event, 5*batchSize),
		batch:      make([]axiom.Event, 0, batchSize),
		ctx:        ctx,
		cancel:     cancel,
	}
	a.wg.Add(1)
	go a.loop()
	return a
}

// Send queues ev, dropping it when the buffer is full.
func (a *axiomClient) Send(ev axiom.Event) {
	select {
	case a.ch <- ev:
	default:
	}
}

func (a *axiomClient) add(ev axiom.Event) {
	a.batch = append(a.batch, ev)
	if len(a.batch) >= a.batchSize {
		a.flush()
	}
}

func (a *axiomClient) flush() {
	if len(a.batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if _, err := a.ingester.IngestEvents(ctx, a.dataset, a.batch); err != nil {
		fmt.Fprintf(os.Stderr, "axiom ingest failed: %v\n", err)
	}
	a.batch = make([]axiom.Event, 0, a.batchSize)
}

func (a *axiomClient) loop() {
	defer a.wg.Done()
	ticker := time.NewTicker(a.flushEvery)
	defer ticker.Stop()
	for {
		select {
		case <-a.ctx.Done():
			for {
				select {
				case ev := <-a.ch:
					a.add(ev)
				default:
					a.flush()
					return
				}
			}
		case <-ticker.C:
			a.flush()
		case ev := <-a.ch:
			a.add(ev)
		}
	}
}

func (a *axiomClient) Close() error {
	a.cancel()
	a.wg.Wait()
	return nil
}
