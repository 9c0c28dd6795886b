package recordlist

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// IndexSelection is a parsed index list. All selects every entry of the box.
type IndexSelection struct {
	All     bool
	Indices []int
}

// ParseIndices parses an index list: "" or "all" selects every entry, otherwise a
// comma-separated list of distinct non-negative integers.
func ParseIndices(spec string) (IndexSelection, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" || strings.EqualFold(spec, "all") {
		return IndexSelection{All: true}, nil
	}

	seen := make(map[int]struct{})
	var indices []int
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || strings.HasPrefix(part, "+") {
			return IndexSelection{}, errors.Wrapf(ErrMalformedIndices, "%q", part)
		}
		if _, dup := seen[n]; dup {
			return IndexSelection{}, errors.Wrapf(ErrMalformedIndices, "duplicate index %d", n)
		}
		seen[n] = struct{}{}
		indices = append(indices, n)
	}
	return IndexSelection{Indices: indices}, nil
}

// Resolve returns the selected positions of a box of the given size in descending
// order, so that removing them one by one leaves the remaining positions valid.
func (s IndexSelection) Resolve(size int) ([]int, error) {
	var out []int
	if s.All {
		out = make([]int, size)
		for i := range out {
			out[i] = i
		}
	} else {
		for _, n := range s.Indices {
			if n >= size {
				return nil, errors.Wrapf(ErrIndexOutOfRange, "index %d, box size %d", n, size)
			}
		}
		out = append(out, s.Indices...)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out, nil
}
