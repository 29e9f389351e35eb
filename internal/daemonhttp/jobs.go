package daemonhttp

import (
	"sync"

	"github.com/shaneholloman/summarize/internal/slides"
)

// jobState tracks one summarize run's slides side-channel progress, so
// the snapshot endpoint can answer while the run is still in flight
// and after it has finished.
type jobState struct {
	mu       sync.Mutex
	snapshot slides.Snapshot
	manifest *slides.Manifest
	err      error
}

func (j *jobState) setSnapshot(s slides.Snapshot) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.snapshot = s
}

func (j *jobState) setDone(m *slides.Manifest, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.manifest = m
	j.err = err
}

func (j *jobState) read() (slides.Snapshot, *slides.Manifest, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snapshot, j.manifest, j.err
}

// jobRegistry is the process-wide map from runId to jobState, keyed the
// same way as streammerge.Bus so a snapshot lookup and an SSE
// subscription share one identifier.
type jobRegistry struct {
	mu   sync.Mutex
	jobs map[string]*jobState
}

func newJobRegistry() *jobRegistry {
	return &jobRegistry{jobs: map[string]*jobState{}}
}

func (r *jobRegistry) start(id string) *jobState {
	r.mu.Lock()
	defer r.mu.Unlock()
	j := &jobState{}
	r.jobs[id] = j
	return j
}

func (r *jobRegistry) get(id string) (*jobState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	return j, ok
}

func (r *jobRegistry) forget(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
}

func (r *jobRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}
