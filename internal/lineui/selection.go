package lineui

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/muurk/nusig/internal/wizard"
)

// errQuit is returned by parseSelection for "q"
var errQuit = errors.New("quit requested")

// parseSelection interprets one answer to a numbered list of n options.
//
//	""           accept the defaults
//	"2" "1,3"    pick entries (1-based); "1-3" picks a range
//	"b"          go back
//	"r"          refresh
//	"s"          show/hide unnamed devices (filterable lists only)
//	"q"          quit
//
// A single-choice list accepts exactly one entry.
func parseSelection(input string, n int, multi, filterable bool, defaults []int) (wizard.Choice, error) {
	input = strings.ToLower(strings.TrimSpace(input))

	switch input {
	case "":
		if len(defaults) == 0 {
			return wizard.Choice{}, errors.New("no default, enter a number")
		}
		if !multi {
			return wizard.Choice{Outcome: wizard.Accepted, Indices: defaults[:1]}, nil
		}
		return wizard.Choice{Outcome: wizard.Accepted, Indices: append([]int(nil), defaults...)}, nil
	case "b", "back":
		return wizard.Choice{Outcome: wizard.Cancelled}, nil
	case "r", "refresh":
		return wizard.Choice{Outcome: wizard.Refreshed}, nil
	case "s":
		if !filterable {
			return wizard.Choice{}, errors.New("nothing to show or hide here")
		}
		return wizard.Choice{Outcome: wizard.FilterToggled}, nil
	case "q", "quit":
		return wizard.Choice{}, errQuit
	}

	seen := make(map[int]bool)
	fields := strings.FieldsFunc(input, func(r rune) bool { return r == ',' || r == ' ' })
	for _, f := range fields {
		lo, hi, err := parseRange(f)
		if err != nil {
			return wizard.Choice{}, err
		}
		for i := lo; i <= hi; i++ {
			if i < 1 || i > n {
				return wizard.Choice{}, fmt.Errorf("%d is out of range 1-%d", i, n)
			}
			seen[i-1] = true
		}
	}

	indices := make([]int, 0, len(seen))
	for i := range seen {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	if !multi && len(indices) != 1 {
		return wizard.Choice{}, errors.New("choose exactly one entry")
	}
	return wizard.Choice{Outcome: wizard.Accepted, Indices: indices}, nil
}

func parseRange(f string) (lo, hi int, err error) {
	if a, b, ok := strings.Cut(f, "-"); ok {
		lo, err = strconv.Atoi(a)
		if err != nil {
			return 0, 0, fmt.Errorf("not a number: %q", a)
		}
		hi, err = strconv.Atoi(b)
		if err != nil {
			return 0, 0, fmt.Errorf("not a number: %q", b)
		}
		if hi < lo {
			return 0, 0, fmt.Errorf("empty range %q", f)
		}
		return lo, hi, nil
	}
	lo, err = strconv.Atoi(f)
	if err != nil {
		return 0, 0, fmt.Errorf("not a number: %q", f)
	}
	return lo, lo, nil
}
