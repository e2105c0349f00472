package job

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// JobState is the coarse position of a request in the pipeline
type JobState int

const (
	JobStateQueued JobState = iota
	JobStateFetching
	JobStateRunning
)

func (s JobState) String() string {
	switch s {
	case JobStateFetching:
		return "fetching"
	case JobStateRunning:
		return "running"
	}
	return "queued"
}

// ActiveJob is a snapshot of one in-flight conversion
type ActiveJob struct {
	RequestID string    `json:"request_id"`
	State     string    `json:"state"`
	Started   time.Time `json:"started"`
}

type activeEntry struct {
	state   JobState
	started time.Time
	cancel  context.CancelFunc
}

var (
	active = make(map[string]*activeEntry) // request id -> entry
	mu     sync.RWMutex
)

func track(id string, cancel context.CancelFunc) {
	mu.Lock()
	defer mu.Unlock()
	active[id] = &activeEntry{state: JobStateQueued, started: time.Now(), cancel: cancel}
}

func setState(id string, state JobState) {
	mu.Lock()
	defer mu.Unlock()
	if e, ok := active[id]; ok {
		e.state = state
	}
}

func untrack(id string) {
	mu.Lock()
	defer mu.Unlock()
	delete(active, id)
}

// CancelJob cancels an in-flight conversion. A running ffmpeg pass is killed
// and the request fails through the normal cleanup path.
func CancelJob(id string) error {
	mu.Lock()
	defer mu.Unlock()

	e, ok := active[id]
	if !ok {
		return fmt.Errorf("job with id %s not found", id)
	}
	e.cancel()
	delete(active, id)
	return nil
}

// ActiveJobs returns the in-flight conversions, oldest first
func ActiveJobs() []ActiveJob {
	mu.RLock()
	defer mu.RUnlock()

	jobs := make([]ActiveJob, 0, len(active))
	for id, e := range active {
		jobs = append(jobs, ActiveJob{RequestID: id, State: e.state.String(), Started: e.started})
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Started.Before(jobs[j].Started) })
	return jobs
}

// isActiveArtifact reports whether a scratch file name belongs to an
// in-flight request.
func isActiveArtifact(name string) bool {
	mu.RLock()
	defer mu.RUnlock()
	for id := range active {
		if strings.HasPrefix(name, id) {
			return true
		}
	}
	return false
}
