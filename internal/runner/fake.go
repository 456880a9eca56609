package runner

import (
	"context"
	"strings"
	"sync"
)

// Call records a single invocation of a command.
type Call struct {
	Dir  string
	Name string
	Args []string
}

func (c Call) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Base returns the call rendered with the executable reduced to its file name,
// so tests can match commands launched from temporary directories.
func (c Call) Base() string {
	return strings.TrimSpace(baseName(c.Name) + " " + strings.Join(c.Args, " "))
}

// Response is a pre-configured response for a command pattern.
type Response struct {
	Output   string
	ExitCode int
	Err      error
}

// FakeRunner records command calls and returns pre-configured responses.
// Exported for use by the winsvc, discovery, lifecycle and orchestrator tests.
type FakeRunner struct {
	mu        sync.Mutex
	Calls     []Call
	responses map[string]Response // key: "name arg1 arg2..."
	fallback  Response
}

// NewFakeRunner creates a FakeRunner whose unmatched commands exit 0 with no output.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		responses: make(map[string]Response),
	}
}

// SetResponse configures a response for a command string. The executable may be
// given as a full path or as its base name.
func (f *FakeRunner) SetResponse(cmd string, resp Response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[cmd] = resp
}

// SetFallback sets the default response for unmatched commands.
func (f *FakeRunner) SetFallback(resp Response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fallback = resp
}

// Run records the call and returns the matching response.
func (f *FakeRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	return f.RunIn(ctx, "", name, args...)
}

// RunIn records the call with its working directory and returns the matching response.
func (f *FakeRunner) RunIn(_ context.Context, dir, name string, args ...string) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	call := Call{Dir: dir, Name: name, Args: args}
	f.Calls = append(f.Calls, call)

	base := baseName(name)
	keys := []string{call.String(), call.Base()}
	// Try matching just the command name with first arg for broader matches
	if len(args) > 0 {
		keys = append(keys, name+" "+args[0], base+" "+args[0])
	}
	keys = append(keys, name, base)

	for _, k := range keys {
		if resp, ok := f.responses[k]; ok {
			return Result{ExitCode: resp.ExitCode, Output: resp.Output}, resp.Err
		}
	}
	return Result{ExitCode: f.fallback.ExitCode, Output: f.fallback.Output}, f.fallback.Err
}

// Called returns true if a command matching the prefix was recorded. The prefix
// is compared against both the full and the base-name rendering of each call.
func (f *FakeRunner) Called(prefix string) bool {
	return f.CallCount(prefix) > 0
}

// CallCount returns the number of times a command matching the prefix was called.
func (f *FakeRunner) CallCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if strings.HasPrefix(c.String(), prefix) || strings.HasPrefix(c.Base(), prefix) {
			n++
		}
	}
	return n
}

// Index returns the position of the first call matching the prefix, or -1.
func (f *FakeRunner) Index(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.Calls {
		if strings.HasPrefix(c.String(), prefix) || strings.HasPrefix(c.Base(), prefix) {
			return i
		}
	}
	return -1
}

// Reset clears all recorded calls.
func (f *FakeRunner) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = nil
}

func baseName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Ensure FakeRunner implements CommandRunner.
var _ CommandRunner = (*FakeRunner)(nil)
var _ CommandRunner = (*OSRunner)(nil)
