package slurm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// harSentinel replaces ",har" before node-sets are split, so a "har..." host
// always starts a new node-set. This only exists for one naming collision in
// the cluster this tool was written for; a ",har" inside brackets is split
// too and will fail to parse.
const harSentinel = "\x00"

// maxRangeSize bounds a single lo-hi range so a typo cannot allocate
// millions of names.
const maxRangeSize = 1 << 16

// ExpandNodeList expands Slurm's compact node-list syntax, e.g.
// "node01-[1-3],node02-[1,2-4]", into explicit node names in textual order.
// Ranges expand in ascending order; a range whose low bound exceeds its high
// bound expands to nothing.
func ExpandNodeList(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	out := []string{}
	if s == "" {
		return out, nil
	}

	for _, chunk := range strings.Split(strings.ReplaceAll(s, ",har", harSentinel+"har"), harSentinel) {
		sets, err := splitNodeSets(chunk)
		if err != nil {
			return nil, &ParseError{Input: s, Reason: err.Error()}
		}
		for _, set := range sets {
			names, err := expandNodeSet(set)
			if err != nil {
				return nil, &ParseError{Input: s, Reason: err.Error()}
			}
			out = append(out, names...)
		}
	}
	return out, nil
}

// splitNodeSets splits on commas that are not inside brackets.
func splitNodeSets(s string) ([]string, error) {
	var sets []string
	inside := false
	start := 0
	for i, c := range s {
		switch c {
		case '[':
			if inside {
				return nil, errors.New("nested brackets")
			}
			inside = true
		case ']':
			if !inside {
				return nil, errors.New("unmatched closing bracket")
			}
			inside = false
		case ',':
			if inside {
				continue
			}
			if i == start {
				return nil, errors.New("empty node name")
			}
			sets = append(sets, s[start:i])
			start = i + 1
		}
	}
	if inside {
		return nil, errors.New("missing closing bracket")
	}
	if start >= len(s) {
		return nil, errors.New("empty node name")
	}
	return append(sets, s[start:]), nil
}

func expandNodeSet(set string) ([]string, error) {
	open := strings.IndexByte(set, '[')
	if open < 0 {
		return []string{set}, nil
	}
	closing := strings.IndexByte(set[open:], ']') + open
	prefix := set[:open]

	suffixes, err := expandRanges(set[open+1 : closing])
	if err != nil {
		return nil, err
	}
	tails := []string{""}
	if rest := set[closing+1:]; rest != "" {
		tails, err = expandNodeSet(rest)
		if err != nil {
			return nil, err
		}
	}

	out := make([]string, 0, len(suffixes)*len(tails))
	for _, suffix := range suffixes {
		for _, tail := range tails {
			out = append(out, prefix+suffix+tail)
		}
	}
	return out, nil
}

func expandRanges(body string) ([]string, error) {
	var out []string
	for _, elt := range strings.Split(body, ",") {
		lo, hi, isRange := strings.Cut(elt, "-")
		if !isRange {
			if !isDigits(elt) {
				return nil, fmt.Errorf("bad range element %q", elt)
			}
			out = append(out, elt)
			continue
		}
		if !isDigits(lo) || !isDigits(hi) {
			return nil, fmt.Errorf("bad range element %q", elt)
		}
		from, err := strconv.Atoi(lo)
		if err != nil {
			return nil, fmt.Errorf("bad range element %q: %w", elt, err)
		}
		to, err := strconv.Atoi(hi)
		if err != nil {
			return nil, fmt.Errorf("bad range element %q: %w", elt, err)
		}
		if to-from >= maxRangeSize {
			return nil, fmt.Errorf("range %q too large", elt)
		}

		if from > to {
			continue
		}

		// Leading zeros are kept ("01-03" gives 01 02 03) so names match the
		// hosts Slurm reports, unlike the old script's int() conversion.
		width := 0
		if len(lo) > 1 && lo[0] == '0' {
			width = len(lo)
		}
		// Stepping with i != to avoids wrapping past math.MaxInt.
		for i := from; ; i++ {
			out = append(out, fmt.Sprintf("%0*d", width, i))
			if i == to {
				break
			}
		}
	}
	return out, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
