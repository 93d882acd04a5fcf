// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"context"
	"maps"
	"slices"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/oklog/ulid/v2"

	"github.com/invowk/vshell/internal/identity"
	"github.com/invowk/vshell/pkg/types"
	"github.com/invowk/vshell/pkg/vpath"
)

type (
	// Session is one logged-in conversation with the interpreter: who is
	// acting, where they are, their environment, history and jobs. Login
	// shells opened by su stack on top of each other and exit pops them.
	//
	// A Session returned by As shares all state with its origin but acts
	// as a different identity; sudo uses it to run a single command.
	Session struct {
		st *sessionState
		as *identity.Identity
	}

	// SessionOptions configures NewSession.
	SessionOptions struct {
		User identity.Identity
		// Home is the user's home directory and the starting directory.
		Home     string
		Env      map[string]string
		Prompter Prompter
		Logger   *log.Logger
	}

	sessionState struct {
		mu       sync.Mutex
		id       string
		frames   []frame
		history  []string
		status   types.ExitCode
		closed   bool
		jobs     *JobTable
		prompter Prompter
	}

	frame struct {
		user identity.Identity
		home string
		cwd  string
		env  map[string]string
	}
)

// NewSession starts a session for opts.User in opts.Home.
func NewSession(opts SessionOptions) *Session {
	home := opts.Home
	if home == "" {
		home = vpath.Root
	}
	env := maps.Clone(opts.Env)
	if env == nil {
		env = map[string]string{}
	}
	return &Session{st: &sessionState{
		id:       ulid.Make().String(),
		frames:   []frame{{user: opts.User, home: home, cwd: home, env: env}},
		jobs:     NewJobTable(opts.Logger),
		prompter: opts.Prompter,
	}}
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.st.id }

func (s *Session) top() *frame { return &s.st.frames[len(s.st.frames)-1] }

// Identity returns the acting identity.
func (s *Session) Identity() identity.Identity {
	if s.as != nil {
		return *s.as
	}
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	return s.top().user
}

// Cwd returns the current directory.
func (s *Session) Cwd() string {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	return s.top().cwd
}

// Home returns the home directory of the current login frame.
func (s *Session) Home() string {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	return s.top().home
}

// SetCwd changes the current directory. The caller checks the target.
func (s *Session) SetCwd(p string) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	s.top().cwd = vpath.Resolve(p, s.top().cwd)
}

// Resolve makes p absolute against the current directory.
func (s *Session) Resolve(p string) string {
	return vpath.Resolve(p, s.Cwd())
}

// Getenv returns an environment variable, including the derived ones.
func (s *Session) Getenv(key string) (string, bool) {
	v, ok := s.envMap()[key]
	return v, ok
}

// Setenv sets an exported variable in the current login frame.
func (s *Session) Setenv(key, value string) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	s.top().env[key] = value
}

// Unsetenv removes a variable from the current login frame.
func (s *Session) Unsetenv(key string) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	delete(s.top().env, key)
}

func (s *Session) envMap() map[string]string {
	id := s.Identity()
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	f := s.top()
	env := maps.Clone(f.env)
	env["USER"] = id.Name
	env["LOGNAME"] = id.Name
	env["PWD"] = f.cwd
	if _, ok := env["HOME"]; !ok {
		env["HOME"] = f.home
	}
	env["?"] = strconv.Itoa(int(s.st.status))
	return env
}

// Environ returns the environment as sorted KEY=value pairs, without the
// special "?" parameter.
func (s *Session) Environ() []string {
	env := s.envMap()
	delete(env, "?")
	keys := slices.Sorted(maps.Keys(env))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

func (s *Session) expansionEnv() []string {
	env := s.envMap()
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

// Status returns the exit status of the last foreground statement.
func (s *Session) Status() types.ExitCode {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	return s.st.status
}

func (s *Session) setStatus(code types.ExitCode) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	s.st.status = code
}

// As returns a view of the session acting as id.
func (s *Session) As(id identity.Identity) *Session {
	return &Session{st: s.st, as: &id}
}

// Push opens a login frame for id (su). With login set the frame starts in
// home with a fresh environment; otherwise it keeps the current directory
// and environment.
func (s *Session) Push(id identity.Identity, home string, login bool) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	cur := s.top()
	f := frame{user: id, home: home, cwd: cur.cwd, env: maps.Clone(cur.env)}
	if login {
		f.cwd = home
		f.env = map[string]string{}
	}
	delete(f.env, "HOME")
	s.st.frames = append(s.st.frames, f)
}

// Pop closes the current login frame. Popping the last frame closes the
// session and returns false.
func (s *Session) Pop() bool {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	if len(s.st.frames) == 1 {
		s.st.closed = true
		return false
	}
	s.st.frames = s.st.frames[:len(s.st.frames)-1]
	return true
}

// Depth returns the number of open login frames.
func (s *Session) Depth() int {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	return len(s.st.frames)
}

// Closed reports whether the outermost frame has exited.
func (s *Session) Closed() bool {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	return s.st.closed
}

// detach returns a copy for a background job: same identity, directory,
// environment and job table, no prompter and its own history.
func (s *Session) detach() *Session {
	id := s.Identity()
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	f := *s.top()
	f.user = id
	f.env = maps.Clone(f.env)
	return &Session{st: &sessionState{
		id:     ulid.Make().String(),
		frames: []frame{f},
		status: s.st.status,
		jobs:   s.st.jobs,
	}}
}

// Jobs returns the session's job table.
func (s *Session) Jobs() *JobTable { return s.st.jobs }

// Prompt asks the session's prompter. Sessions without one, such as
// background jobs, get ErrNoInput.
func (s *Session) Prompt(ctx context.Context, req InputRequest) (string, error) {
	s.st.mu.Lock()
	p := s.st.prompter
	s.st.mu.Unlock()
	if p == nil {
		return "", ErrNoInput
	}
	answer, err := p.Prompt(ctx, req)
	return answer, Cancelled(err)
}

// SetPrompter replaces the prompter.
func (s *Session) SetPrompter(p Prompter) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	s.st.prompter = p
}

// AddHistory records a submitted line.
func (s *Session) AddHistory(line string) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	s.st.history = append(s.st.history, line)
}

// History returns the submitted lines, oldest first.
func (s *Session) History() []string {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	return slices.Clone(s.st.history)
}

// ClearHistory forgets the submitted lines.
func (s *Session) ClearHistory() {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	s.st.history = nil
}
