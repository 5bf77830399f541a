package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"policywrangle/internal/etl"
)

// ─────────────────────────────────────────────────────────────
// Pipeline Service: runs one configured job, on demand or on file change
// ─────────────────────────────────────────────────────────────

const (
	defaultRunTimeout = 5 * time.Minute
	defaultDebounce   = 500 * time.Millisecond
)

// ErrAlreadyRunning is returned by RunOnce while a run of the same job is
// in progress.
var ErrAlreadyRunning = errors.New("job is already running")

// PipelineService runs a job through an Engine and re-runs it when the
// input file changes.
type PipelineService struct {
	engine    *etl.Engine
	job       *etl.Job
	inputPath string
	emitter   EventEmitter
	log       *zap.Logger
	running   runGuard

	// Debounce is how long the watcher waits after the last write before
	// running. Zero means 500ms.
	Debounce time.Duration

	// watcher lifecycle
	mu          sync.Mutex
	watchCancel context.CancelFunc
	watcher     *fsnotify.Watcher
	watchDone   chan struct{}
}

// NewPipelineService creates a PipelineService ready for use.
func NewPipelineService(
	engine *etl.Engine,
	job *etl.Job,
	inputPath string,
	emitter EventEmitter,
	log *zap.Logger,
) *PipelineService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PipelineService{
		engine:    engine,
		job:       job,
		inputPath: inputPath,
		emitter:   emitter,
		log:       log,
	}
}

// ── Run ────────────────────────────────────────────────────

// RunOnce executes the job synchronously and emits the outcome. While
// another run of the job is in progress it returns a *BusyError.
func (s *PipelineService) RunOnce(ctx context.Context) (*etl.RunResult, error) {
	return s.run(ctx, TriggerManual)
}

// Running reports the run currently in progress, if any.
func (s *PipelineService) Running() (RunInfo, bool) {
	return s.running.current(s.job.ID)
}

func (s *PipelineService) run(ctx context.Context, trigger string) (*etl.RunResult, error) {
	release, err := s.running.begin(s.job.ID, trigger)
	if err != nil {
		return nil, err
	}
	defer release()

	runCtx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	result, err := s.engine.Run(runCtx, s.job)
	if err != nil {
		s.emit(ctx, EventRunFailed, map[string]any{
			"jobId":   s.job.ID,
			"runId":   result.RunID,
			"trigger": trigger,
			"error":   result.Error,
		})
		return result, err
	}

	s.emit(ctx, EventRunCompleted, map[string]any{
		"jobId":       s.job.ID,
		"runId":       result.RunID,
		"trigger":     trigger,
		"rowsRead":    result.RowsRead,
		"rowsWritten": result.RowsWritten,
	})
	return result, nil
}

func (s *PipelineService) emit(ctx context.Context, event string, data any) {
	if s.emitter != nil {
		s.emitter.Emit(ctx, event, data)
	}
}

// ── Watcher ────────────────────────────────────────────────

// StartWatch begins re-running the job whenever the input file is written
// or re-created. It returns once the watcher is installed; call Stop to end
// it. Runs use ctx as their parent context.
func (s *PipelineService) StartWatch(ctx context.Context) error {
	if s.inputPath == "" {
		return fmt.Errorf("%w: source has no input file to watch", etl.ErrConfig)
	}
	absPath, err := filepath.Abs(s.inputPath)
	if err != nil {
		return fmt.Errorf("resolve %q: %w", s.inputPath, err)
	}

	s.Stop()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory: editors often replace the file rather than write it.
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch dir %q: %w", filepath.Dir(absPath), err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	s.mu.Lock()
	s.watcher = watcher
	s.watchCancel = cancel
	s.watchDone = done
	s.mu.Unlock()

	debounce := s.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	go func() {
		defer close(done)
		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()
		for {
			select {
			case <-watchCtx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if p, _ := filepath.Abs(event.Name); p != absPath {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(debounce, func() {
					s.log.Info("input changed, running job", zap.String("path", absPath), zap.String("job", s.job.ID))
					if _, err := s.run(watchCtx, TriggerWatch); err != nil {
						s.log.Warn("watch run failed", zap.String("job", s.job.ID), zap.Error(err))
					}
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.log.Warn("watcher error", zap.Error(err))
			}
		}
	}()

	s.log.Info("watching input", zap.String("path", absPath))
	return nil
}

// WaitRunning blocks until in-flight runs finish or ctx is cancelled.
func (s *PipelineService) WaitRunning(ctx context.Context) {
	s.running.wait(ctx)
}

// Stop tears down the watcher. It is safe to call more than once.
func (s *PipelineService) Stop() {
	s.mu.Lock()
	cancel, watcher, done := s.watchCancel, s.watcher, s.watchDone
	s.watchCancel, s.watcher, s.watchDone = nil, nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if watcher != nil {
		watcher.Close()
	}
	if done != nil {
		<-done
	}
}
