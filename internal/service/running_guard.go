package service

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Run triggers, reported in run events and busy errors.
const (
	TriggerManual = "manual"
	TriggerWatch  = "watch"
)

// ─────────────────────────────────────────────────────────────
// runGuard: one run per job, whoever triggered it
// ─────────────────────────────────────────────────────────────

// RunInfo describes the run currently holding a job.
type RunInfo struct {
	Trigger string
	Started time.Time
}

// BusyError is returned when a job is claimed while another run holds it.
type BusyError struct {
	JobID string
	Held  RunInfo
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("%s: %s run in progress since %s: %v",
		e.JobID, e.Held.Trigger, e.Held.Started.Format(time.RFC3339), ErrAlreadyRunning)
}

func (e *BusyError) Unwrap() error { return ErrAlreadyRunning }

// runGuard keeps a manual run and a watcher-triggered run of the same job
// from overlapping.
type runGuard struct {
	mu     sync.Mutex
	active map[string]RunInfo
	wg     sync.WaitGroup
	now    func() time.Time
}

// begin claims jobID for a run started by trigger. The returned release
// ends the claim; calling it again is a no-op.
func (g *runGuard) begin(jobID, trigger string) (release func(), err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if held, ok := g.active[jobID]; ok {
		return nil, &BusyError{JobID: jobID, Held: held}
	}
	if g.active == nil {
		g.active = make(map[string]RunInfo)
	}
	now := time.Now
	if g.now != nil {
		now = g.now
	}
	g.active[jobID] = RunInfo{Trigger: trigger, Started: now()}
	g.wg.Add(1)

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.active, jobID)
			g.mu.Unlock()
			g.wg.Done()
		})
	}, nil
}

// current reports the run holding jobID, if any.
func (g *runGuard) current(jobID string) (RunInfo, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	info, ok := g.active[jobID]
	return info, ok
}

// wait blocks until in-flight runs finish or ctx is cancelled.
func (g *runGuard) wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
