// SPDX-License-Identifier: MPL-2.0

// Package textedit holds reversible text operations. Each operation is one
// variant of Op; Apply returns the operation resolved against the text it
// ran on, which is what Revert needs to undo it exactly.
package textedit

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrOutOfRange is returned when an offset falls outside the text.
	ErrOutOfRange = errors.New("offset out of range")
	// ErrConflict is returned when Revert finds text that the operation did
	// not produce.
	ErrConflict = errors.New("text changed since the edit was applied")
)

type (
	// Op is one of Insert, Delete or ReplaceAll.
	Op interface {
		kind() string
	}

	// Insert places Text at byte offset At.
	Insert struct {
		At   int
		Text string
	}

	// Delete removes Len bytes starting at At. Apply fills Text with what
	// was removed.
	Delete struct {
		At   int
		Len  int
		Text string
	}

	// ReplaceAll replaces matches of the regular expression Pattern with
	// Replacement, which may use ${1} style group references. With
	// FirstPerLine only the first match on each line is replaced. Apply
	// fills Spans.
	ReplaceAll struct {
		Pattern      string
		Replacement  string
		FirstPerLine bool
		Spans        []Span
	}

	// Span records one replacement: At is the offset of New in the edited
	// text and Old is what it replaced.
	Span struct {
		At  int
		Old string
		New string
	}
)

func (Insert) kind() string     { return "insert" }
func (Delete) kind() string     { return "delete" }
func (ReplaceAll) kind() string { return "replace" }

// Apply runs op on text and returns the result with the resolved op.
func Apply(text string, op Op) (string, Op, error) {
	switch o := op.(type) {
	case Insert:
		if o.At < 0 || o.At > len(text) {
			return text, nil, fmt.Errorf("insert at %d: %w", o.At, ErrOutOfRange)
		}
		return text[:o.At] + o.Text + text[o.At:], o, nil
	case Delete:
		if o.At < 0 || o.Len < 0 || o.At+o.Len > len(text) {
			return text, nil, fmt.Errorf("delete %d at %d: %w", o.Len, o.At, ErrOutOfRange)
		}
		o.Text = text[o.At : o.At+o.Len]
		return text[:o.At] + text[o.At+o.Len:], o, nil
	case ReplaceAll:
		return replace(text, o)
	default:
		return text, nil, fmt.Errorf("unknown edit %T", op)
	}
}

// Revert undoes a resolved op on text, the result of Apply.
func Revert(text string, op Op) (string, error) {
	switch o := op.(type) {
	case Insert:
		end := o.At + len(o.Text)
		if o.At < 0 || end > len(text) {
			return text, ErrOutOfRange
		}
		if text[o.At:end] != o.Text {
			return text, ErrConflict
		}
		return text[:o.At] + text[end:], nil
	case Delete:
		if o.At < 0 || o.At > len(text) {
			return text, ErrOutOfRange
		}
		return text[:o.At] + o.Text + text[o.At:], nil
	case ReplaceAll:
		for i := len(o.Spans) - 1; i >= 0; i-- {
			s := o.Spans[i]
			end := s.At + len(s.New)
			if s.At < 0 || end > len(text) {
				return text, ErrOutOfRange
			}
			if text[s.At:end] != s.New {
				return text, ErrConflict
			}
			text = text[:s.At] + s.Old + text[end:]
		}
		return text, nil
	default:
		return text, fmt.Errorf("unknown edit %T", op)
	}
}

func replace(text string, o ReplaceAll) (string, Op, error) {
	re, err := regexp.Compile(o.Pattern)
	if err != nil {
		return text, nil, fmt.Errorf("invalid pattern: %w", err)
	}
	var (
		b     strings.Builder
		spans []Span
		last  int
	)
	lineStart, lineDone := 0, false
	for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[0], m[1]
		if nl := strings.LastIndexByte(text[:start], '\n'); nl+1 != lineStart {
			lineStart, lineDone = nl+1, false
		}
		if o.FirstPerLine && lineDone {
			continue
		}
		lineDone = true
		repl := string(re.ExpandString(nil, o.Replacement, text, m))
		b.WriteString(text[last:start])
		spans = append(spans, Span{At: b.Len(), Old: text[start:end], New: repl})
		b.WriteString(repl)
		last = end
	}
	b.WriteString(text[last:])
	o.Spans = spans
	return b.String(), o, nil
}

// Buffer is text with an undo history.
type Buffer struct {
	text   string
	done   []Op
	undone []Op
}

// NewBuffer returns a buffer holding text.
func NewBuffer(text string) *Buffer { return &Buffer{text: text} }

func (b *Buffer) String() string { return b.text }

// Do applies op and records it. Redo history is dropped.
func (b *Buffer) Do(op Op) error {
	text, resolved, err := Apply(b.text, op)
	if err != nil {
		return err
	}
	b.text = text
	b.done = append(b.done, resolved)
	b.undone = nil
	return nil
}

// Undo reverts the last applied op. It reports false when there is none.
func (b *Buffer) Undo() (bool, error) {
	if len(b.done) == 0 {
		return false, nil
	}
	op := b.done[len(b.done)-1]
	text, err := Revert(b.text, op)
	if err != nil {
		return false, err
	}
	b.text = text
	b.done = b.done[:len(b.done)-1]
	b.undone = append(b.undone, op)
	return true, nil
}

// Redo re-applies the last undone op.
func (b *Buffer) Redo() (bool, error) {
	if len(b.undone) == 0 {
		return false, nil
	}
	op := b.undone[len(b.undone)-1]
	b.undone = b.undone[:len(b.undone)-1]
	text, resolved, err := Apply(b.text, op)
	if err != nil {
		return false, err
	}
	b.text = text
	b.done = append(b.done, resolved)
	return true, nil
}

// Changes returns how many applied ops the buffer holds.
func (b *Buffer) Changes() int { return len(b.done) }
