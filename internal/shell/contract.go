// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"fmt"
	"strconv"
	"strings"
)

type (
	// FlagSpec declares one accepted flag.
	FlagSpec struct {
		// Name is the long form without dashes ("recursive").
		Name string
		// Short is the single-letter alias ("r"), empty when there is none.
		// A flag with only a short form uses the letter as Name as well.
		Short string
		// TakesValue marks flags that consume an argument (-n 5, --lines=5).
		TakesValue bool
		// Description is shown by help.
		Description string
	}

	// ArgCount bounds the number of positional arguments. Max < 0 means
	// unbounded.
	ArgCount struct {
		Min int
		Max int
	}

	// Contract is what a command promises to accept. The interpreter checks
	// it before Run is called.
	Contract struct {
		Usage   string
		Summary string
		Flags   []FlagSpec
		Args    ArgCount
		// StopAtFirstPositional ends flag parsing at the first positional
		// argument, leaving the rest of the line untouched (sudo, su).
		StopAtFirstPositional bool
		// NumericFlag accepts "-5" as shorthand for the named flag with
		// value 5 (head, tail).
		NumericFlag string
		// SingleDashLong reads "-name" as the long flag "name" (find).
		SingleDashLong bool
	}

	// Flags holds parsed flag values keyed by FlagSpec.Name.
	Flags struct {
		set    map[string]int
		values map[string][]string
	}
)

// Exactly requires n positional arguments.
func Exactly(n int) ArgCount { return ArgCount{Min: n, Max: n} }

// AtLeast requires n or more positional arguments.
func AtLeast(n int) ArgCount { return ArgCount{Min: n, Max: -1} }

// AtMost allows up to n positional arguments.
func AtMost(n int) ArgCount { return ArgCount{Min: 0, Max: n} }

// Between allows min to max positional arguments inclusive.
func Between(minArgs, maxArgs int) ArgCount { return ArgCount{Min: minArgs, Max: maxArgs} }

// Any accepts any number of positional arguments.
func Any() ArgCount { return ArgCount{Min: 0, Max: -1} }

// Check reports whether n positional arguments satisfy the count.
func (a ArgCount) Check(n int) error {
	switch {
	case a.Max == 0 && n > 0:
		return fmt.Errorf("takes no arguments")
	case a.Max >= 0 && a.Min == a.Max && n != a.Min:
		return fmt.Errorf("expects %s, got %d", plural(a.Min, "argument"), n)
	case n < a.Min:
		if n == 0 {
			return fmt.Errorf("missing operand")
		}
		return fmt.Errorf("expects at least %s, got %d", plural(a.Min, "argument"), n)
	case a.Max >= 0 && n > a.Max:
		return fmt.Errorf("expects at most %s, got %d", plural(a.Max, "argument"), n)
	}
	return nil
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return strconv.Itoa(n) + " " + word + "s"
}

func (c Contract) byShort(s string) (FlagSpec, bool) {
	for _, f := range c.Flags {
		if f.Short == s || (f.Short == "" && f.Name == s) {
			return f, true
		}
	}
	return FlagSpec{}, false
}

func (c Contract) byLong(s string) (FlagSpec, bool) {
	for _, f := range c.Flags {
		if f.Name == s {
			return f, true
		}
	}
	return FlagSpec{}, false
}

func isNumber(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

// ParseArgs splits args into flags and positionals according to the
// contract, GNU style: flags may follow positionals unless
// StopAtFirstPositional is set, "--" ends flag parsing, a lone "-" is a
// positional, short flags cluster ("-rf") and a short flag's value may be
// attached ("-n5"). Without a NumericFlag, negative numbers are
// positionals. Any violation is a MalformedCommandError.
func (c Contract) ParseArgs(name string, args []string) (Flags, []string, error) {
	flags := Flags{set: map[string]int{}, values: map[string][]string{}}
	var positional []string
	bad := func(format string, a ...any) (Flags, []string, error) {
		return Flags{}, nil, &MalformedCommandError{Command: name, Reason: fmt.Sprintf(format, a...), Usage: c.Usage}
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			positional = append(positional, args[i+1:]...)
			i = len(args)
		case arg == "-" || !strings.HasPrefix(arg, "-") || (c.NumericFlag == "" && isNumber(arg)):
			if c.StopAtFirstPositional {
				positional = append(positional, args[i:]...)
				i = len(args)
				continue
			}
			positional = append(positional, arg)
		case strings.HasPrefix(arg, "--") || (c.SingleDashLong && len(arg) > 2):
			key, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
			spec, ok := c.byLong(key)
			if !ok {
				return bad("unrecognized option '--%s'", key)
			}
			switch {
			case spec.TakesValue && !hasValue:
				if i+1 >= len(args) {
					return bad("option '--%s' requires an argument", key)
				}
				i++
				value = args[i]
			case !spec.TakesValue && hasValue:
				return bad("option '--%s' doesn't allow an argument", key)
			}
			flags.add(spec, value)
		case c.NumericFlag != "" && isNumber(arg[1:]):
			spec, _ := c.byLong(c.NumericFlag)
			flags.add(spec, arg[1:])
		default:
			cluster := arg[1:]
			for j := 0; j < len(cluster); j++ {
				letter := cluster[j : j+1]
				spec, ok := c.byShort(letter)
				if !ok {
					return bad("invalid option -- '%s'", letter)
				}
				if !spec.TakesValue {
					flags.add(spec, "")
					continue
				}
				value := cluster[j+1:]
				if value == "" {
					if i+1 >= len(args) {
						return bad("option requires an argument -- '%s'", letter)
					}
					i++
					value = args[i]
				}
				flags.add(spec, value)
				break
			}
		}
	}

	if err := c.Args.Check(len(positional)); err != nil {
		return bad("%v", err)
	}
	return flags, positional, nil
}

func (f *Flags) add(spec FlagSpec, value string) {
	f.set[spec.Name]++
	if spec.TakesValue {
		f.values[spec.Name] = append(f.values[spec.Name], value)
	}
}

// Bool reports whether the flag was given.
func (f Flags) Bool(name string) bool { return f.set[name] > 0 }

// Count returns how many times the flag was given.
func (f Flags) Count(name string) int { return f.set[name] }

// String returns the last value of the flag, or def when it is absent.
func (f Flags) String(name, def string) string {
	vs := f.values[name]
	if len(vs) == 0 {
		return def
	}
	return vs[len(vs)-1]
}

// Strings returns every value given for the flag in order.
func (f Flags) Strings(name string) []string { return f.values[name] }

// Int returns the flag value as an integer, def when absent.
func (f Flags) Int(name string, def int) (int, error) {
	v := f.String(name, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid number '%s'", v)
	}
	return n, nil
}
