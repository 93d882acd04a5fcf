// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"context"
	"strings"
	"sync"
)

// Input kinds a command may ask for.
const (
	InputText InputKind = iota
	InputPassword
	InputConfirm
)

type (
	// InputKind tells the front end how to collect an answer.
	InputKind uint8

	// InputRequest is what a command asks of the person at the terminal.
	// The interpreter suspends on it until the Prompter answers.
	InputRequest struct {
		Kind    InputKind
		Message string
	}

	// Prompter answers InputRequests. Front ends implement it over a
	// terminal; tests use Answers.
	Prompter interface {
		Prompt(ctx context.Context, req InputRequest) (string, error)
	}

	// PrompterFunc adapts a function to Prompter.
	PrompterFunc func(ctx context.Context, req InputRequest) (string, error)

	// Answers is a Prompter that replays canned answers in order and
	// records what was asked. Running out of answers yields ErrNoInput.
	Answers struct {
		mu      sync.Mutex
		answers []string
		asked   []InputRequest
	}
)

// Prompt calls f.
func (f PrompterFunc) Prompt(ctx context.Context, req InputRequest) (string, error) {
	return f(ctx, req)
}

// NewAnswers returns a Prompter that replays answers.
func NewAnswers(answers ...string) *Answers {
	return &Answers{answers: answers}
}

// Prompt implements Prompter.
func (a *Answers) Prompt(ctx context.Context, req InputRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.asked = append(a.asked, req)
	if len(a.answers) == 0 {
		return "", ErrNoInput
	}
	next := a.answers[0]
	a.answers = a.answers[1:]
	return next, nil
}

// Asked returns the requests seen so far.
func (a *Answers) Asked() []InputRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]InputRequest(nil), a.asked...)
}

// Push queues more answers.
func (a *Answers) Push(answers ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.answers = append(a.answers, answers...)
}

// IsYes reports whether a confirmation answer means yes.
func IsYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
