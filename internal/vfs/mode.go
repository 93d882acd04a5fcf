// SPDX-License-Identifier: MPL-2.0

package vfs

import (
	"fmt"
	"strconv"
	"strings"
)

// Default modes for nodes created on behalf of an identity.
const (
	DefaultDirMode  Mode = 0o755
	DefaultFileMode Mode = 0o644
)

type (
	// Mode holds the nine rwx permission bits for owner, group and other.
	Mode uint16

	// Capability is one permission bit: read, write or execute.
	Capability uint8
)

// Capabilities, as the low bits of an rwx triplet.
const (
	Execute Capability = 1 << iota
	Write
	Read
)

func (c Capability) String() string {
	switch c {
	case Read:
		return "read"
	case Write:
		return "write"
	case Execute:
		return "execute"
	default:
		return fmt.Sprintf("capability(%d)", uint8(c))
	}
}

// Perm masks m to its permission bits.
func (m Mode) Perm() Mode { return m & 0o777 }

// String renders m as "rwxr-x---".
func (m Mode) String() string {
	const letters = "rwx"
	var b [9]byte
	for i := range 9 {
		if m&(1<<(8-i)) != 0 {
			b[i] = letters[i%3]
		} else {
			b[i] = '-'
		}
	}
	return string(b[:])
}

// Octal renders m as a four digit octal string such as "0755".
func (m Mode) Octal() string {
	return fmt.Sprintf("%04o", uint16(m.Perm()))
}

// ParseMode parses an octal mode of up to four digits ("755", "0640").
func ParseMode(s string) (Mode, error) {
	if s == "" || len(s) > 4 {
		return 0, fmt.Errorf("invalid mode %q", s)
	}
	v, err := strconv.ParseUint(s, 8, 16)
	if err != nil || v > 0o777 {
		return 0, fmt.Errorf("invalid mode %q", s)
	}
	return Mode(v), nil
}

// ApplyChmod evaluates a chmod mode expression against current. The
// expression is either octal or a comma list of symbolic clauses such as
// "u+x", "go-w" or "a=rX". isDir controls the conditional X bit.
func ApplyChmod(expr string, current Mode, isDir bool) (Mode, error) {
	if expr != "" && expr[0] >= '0' && expr[0] <= '7' {
		return ParseMode(expr)
	}
	m := current.Perm()
	for clause := range strings.SplitSeq(expr, ",") {
		next, err := applyClause(clause, m, isDir)
		if err != nil {
			return 0, fmt.Errorf("invalid mode %q: %w", expr, err)
		}
		m = next
	}
	return m, nil
}

func applyClause(clause string, m Mode, isDir bool) (Mode, error) {
	i := 0
	var who Mode
scan:
	for ; i < len(clause); i++ {
		switch clause[i] {
		case 'u':
			who |= 0o700
		case 'g':
			who |= 0o070
		case 'o':
			who |= 0o007
		case 'a':
			who |= 0o777
		default:
			break scan
		}
	}
	if who == 0 {
		who = 0o777
	}
	if i >= len(clause) {
		return 0, fmt.Errorf("missing operator in %q", clause)
	}
	for i < len(clause) {
		op := clause[i]
		if op != '+' && op != '-' && op != '=' {
			return 0, fmt.Errorf("unexpected %q in %q", op, clause)
		}
		i++
		var bits Mode
		for ; i < len(clause) && strings.IndexByte("rwxX", clause[i]) >= 0; i++ {
			switch clause[i] {
			case 'r':
				bits |= 0o444
			case 'w':
				bits |= 0o222
			case 'x':
				bits |= 0o111
			case 'X':
				if isDir || m&0o111 != 0 {
					bits |= 0o111
				}
			}
		}
		bits &= who
		switch op {
		case '+':
			m |= bits
		case '-':
			m &^= bits
		case '=':
			m = m&^who | bits
		}
	}
	return m, nil
}
