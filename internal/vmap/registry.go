package vmap

import (
	"sort"
	"sync"
)

// compileEntry tracks one model filename in the deduplication table.
// done is closed once the owning worker has finished compiling.
type compileEntry struct {
	done chan struct{}
	info GeometryInfo
	err  error
}

// failure is a failed-paths set entry.
type failure struct {
	kind ErrorKind
	err  error
}

// Registry is the run-scoped deduplication table together with the
// failed-paths set. Both live under one lock so that the check for a previous
// failure and the claim of a filename happen atomically.
type Registry struct {
	mu       sync.Mutex
	compiled map[string]*compileEntry
	failed   map[string]failure
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		compiled: make(map[string]*compileEntry),
		failed:   make(map[string]failure),
	}
}

// claim decides who compiles key. It returns one of:
//   - owner=true: the caller must compile and then call finish;
//   - entry != nil, owner=false: another caller owns key, wait on entry.done;
//   - a previous failure for key.
func (r *Registry) claim(key string) (entry *compileEntry, owner bool, prev *failure) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f, ok := r.failed[key]; ok {
		return nil, false, &f
	}
	if e, ok := r.compiled[key]; ok {
		return e, false, nil
	}
	e := &compileEntry{done: make(chan struct{})}
	r.compiled[key] = e
	return e, true, nil
}

// finish publishes the compile result. A failed compile is removed from the
// table, so the filename is never marked compiled, and recorded as failed.
func (r *Registry) finish(key string, e *compileEntry, info GeometryInfo, err error) {
	r.mu.Lock()
	e.info = info
	e.err = err
	if err != nil {
		delete(r.compiled, key)
		if _, ok := r.failed[key]; !ok {
			r.failed[key] = failure{kind: Kind(err), err: err}
		}
	}
	r.mu.Unlock()
	close(e.done)
}

// MarkFailed records key in the failed-paths set. The first failure wins.
func (r *Registry) MarkFailed(key string, kind ErrorKind, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.failed[key]; !ok {
		r.failed[key] = failure{kind: kind, err: err}
	}
}

// Failed returns the recorded failure kind for key.
func (r *Registry) Failed(key string) (ErrorKind, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.failed[key]
	return f.kind, ok
}

// IsCompiled reports whether key has been compiled successfully.
func (r *Registry) IsCompiled(key string) bool {
	r.mu.Lock()
	e, ok := r.compiled[key]
	r.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case <-e.done:
		return e.err == nil
	default:
		return false
	}
}

// Compiled returns every successfully compiled geometry, sorted by path.
func (r *Registry) Compiled() []GeometryInfo {
	r.mu.Lock()
	entries := make([]*compileEntry, 0, len(r.compiled))
	for _, e := range r.compiled {
		entries = append(entries, e)
	}
	r.mu.Unlock()

	var out []GeometryInfo
	for _, e := range entries {
		select {
		case <-e.done:
			if e.err == nil {
				out = append(out, e.info)
			}
		default:
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}

// Failures returns every failed path, sorted.
func (r *Registry) Failures() []Failure {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Failure, 0, len(r.failed))
	for path, f := range r.failed {
		out = append(out, Failure{Path: path, Kind: f.kind.String(), Error: f.err.Error()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
