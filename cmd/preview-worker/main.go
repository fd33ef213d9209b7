// preview-worker renders thumbnails for a batch of jobs. Jobs arrive as
// JSON lines on stdin or from a file, one object per line:
//
//	{"source_path": "models/chair.stl", "artifact_id": "chair", "size": 512, "backend": "software"}
//
// Jobs run concurrently; jobs for the same artifact identifier are
// serialized so the last publish for an identifier is a complete artifact.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kvistgaard/meshpreview/internal/config"
	"github.com/kvistgaard/meshpreview/internal/logger"
	"github.com/kvistgaard/meshpreview/internal/pipeline"
	"github.com/kvistgaard/meshpreview/internal/render"
)

// job is one line of worker input.
type job struct {
	SourcePath string `json:"source_path"`
	ArtifactID string `json:"artifact_id"`
	Size       int    `json:"size,omitempty"`
	Backend    string `json:"backend,omitempty"`
}

func main() {
	var (
		configPath  = flag.String("config", "", "path to YAML config file")
		jobsPath    = flag.String("jobs", "", "jobs file (JSON lines); default stdin")
		concurrency = flag.Int("concurrency", 4, "number of parallel render workers")
		debug       = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if *debug {
		cfg.Logging.Level = "debug"
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	gen, err := pipeline.New(cfg)
	if err != nil {
		logger.Error("pipeline setup failed", zap.Error(err))
		os.Exit(1)
	}

	var input io.Reader = os.Stdin
	if *jobsPath != "" {
		f, err := os.Open(*jobsPath)
		if err != nil {
			logger.Error("opening jobs file", zap.Error(err))
			os.Exit(1)
		}
		defer f.Close()
		input = f
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *concurrency < 1 {
		*concurrency = 1
	}
	logger.Info("worker starting",
		zap.Int("concurrency", *concurrency),
		zap.String("backend", cfg.Render.Backend),
		zap.String("artifact_root", cfg.Paths.ArtifactRoot),
	)

	failed := run(ctx, gen, input, *concurrency)
	if failed > 0 {
		logger.Error("worker finished with failures", zap.Int("failed", failed))
		os.Exit(1)
	}
	logger.Info("worker finished")
}

// run feeds jobs to a worker pool and returns the number of jobs that
// ended in a hard (filesystem) failure. Placeholder publishes count as
// success: the artifact exists.
func run(ctx context.Context, gen *pipeline.Generator, input io.Reader, concurrency int) int {
	jobs := make(chan job)
	var wg sync.WaitGroup
	var mu sync.Mutex
	failed := 0

	locks := newKeyedLocks()

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if !process(ctx, gen, locks, j) {
					mu.Lock()
					failed++
					mu.Unlock()
				}
			}
		}()
	}

	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNo := 0
scan:
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var j job
		if err := json.Unmarshal(line, &j); err != nil {
			logger.Warn("skipping malformed job line", zap.Int("line", lineNo), zap.Error(err))
			continue
		}
		if j.SourcePath == "" || j.ArtifactID == "" {
			logger.Warn("skipping job without source_path or artifact_id", zap.Int("line", lineNo))
			continue
		}
		select {
		case jobs <- j:
		case <-ctx.Done():
			logger.Warn("shutdown requested, draining")
			break scan
		}
	}
	close(jobs)
	if err := scanner.Err(); err != nil {
		logger.Error("reading jobs", zap.Error(err))
	}
	wg.Wait()
	return failed
}

// process runs one job under its artifact lock.
func process(ctx context.Context, gen *pipeline.Generator, locks *keyedLocks, j job) bool {
	runID := uuid.NewString()
	log := logger.Log.With(
		zap.String("run_id", runID),
		zap.String("artifact", j.ArtifactID),
		zap.String("source", j.SourcePath),
	)

	unlock := locks.lock(j.ArtifactID)
	defer unlock()

	res, err := gen.Render(ctx, pipeline.Request{
		SourcePath: j.SourcePath,
		ArtifactID: j.ArtifactID,
		Size:       j.Size,
		Backend:    render.Backend(j.Backend),
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Shutdown abandoned the job; the previous artifact, if any,
			// is untouched.
			log.Warn("job abandoned")
			return true
		}
		log.Error("job failed", zap.Error(err))
		return false
	}
	if res.Placeholder {
		log.Warn("job published placeholder", zap.String("reason", res.Reason))
	} else {
		log.Info("job published thumbnail",
			zap.Int("resolution", res.Resolution),
			zap.Int("bytes", res.Bytes),
			zap.String("backend", string(res.Backend)),
		)
	}
	return true
}

// keyedLocks serializes work per artifact identifier while unrelated jobs
// run in parallel.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedLocks) lock(key string) (unlock func()) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
