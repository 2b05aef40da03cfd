// Package fake provides in-memory stand-ins for the lifecycle boundaries:
// the container runtime, the instance state store, the config store, the
// port lease registry, the bind prober and the readiness probe. Each fake
// records its calls so tests can assert on ordering and side effects.
package fake

import "sync"

// Call records a single method invocation.
type Call struct {
	Method string
	Args   []any
}

// CallRecorder tracks method calls for assertion in tests.
type CallRecorder struct {
	mu    sync.Mutex
	calls []Call
}

func (r *CallRecorder) record(method string, args ...any) {
	r.mu.Lock()
	r.calls = append(r.calls, Call{Method: method, Args: args})
	r.mu.Unlock()
}

// Calls returns recorded calls. If method is "", returns all calls.
func (r *CallRecorder) Calls(method string) []Call {
	r.mu.Lock()
	defer r.mu.Unlock()

	if method == "" {
		out := make([]Call, len(r.calls))
		copy(out, r.calls)
		return out
	}

	var out []Call
	for _, c := range r.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Methods returns the recorded method names in call order, skipping any
// listed in ignore.
func (r *CallRecorder) Methods(ignore ...string) []string {
	skip := make(map[string]bool, len(ignore))
	for _, m := range ignore {
		skip[m] = true
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.calls))
	for _, c := range r.calls {
		if !skip[c.Method] {
			out = append(out, c.Method)
		}
	}
	return out
}

// Reset clears all recorded calls.
func (r *CallRecorder) Reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}
