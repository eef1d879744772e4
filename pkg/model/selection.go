package model

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseVertexSelection turns CLI-style vertex specs into vertices. A spec
// is a label ("AB", any case), an index ("12"), or an inclusive index
// range ("3-7"); specs may also be comma separated. Labels take
// precedence, with a numeric parse as the fallback. An empty selection
// means every vertex. Duplicates are dropped, first occurrence wins.
func ParseVertexSelection(m *ModelData, specs []string) ([]*ModelVertex, error) {
	var parts []string
	for _, s := range specs {
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
	}
	if len(parts) == 0 {
		return m.SortedVertices(), nil
	}

	var out []*ModelVertex
	seen := make(map[int]bool)
	add := func(vidx int) error {
		v, err := m.Vertex(vidx)
		if err != nil {
			return err
		}
		if !seen[vidx] {
			seen[vidx] = true
			out = append(out, v)
		}
		return nil
	}

	for _, p := range parts {
		if vidx, ok := m.VidxByLabel(p); ok {
			if err := add(vidx); err != nil {
				return nil, err
			}
			continue
		}
		lo, hi, err := parseRange(p)
		if err != nil {
			return nil, fmt.Errorf("%w: vertex %q", ErrNotFound, p)
		}
		for i := lo; i <= hi; i++ {
			if err := add(i); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func parseRange(s string) (int, int, error) {
	if before, after, ok := strings.Cut(s, "-"); ok && before != "" {
		lo, err := strconv.Atoi(before)
		if err != nil {
			return 0, 0, err
		}
		hi, err := strconv.Atoi(after)
		if err != nil {
			return 0, 0, err
		}
		if hi < lo {
			return 0, 0, fmt.Errorf("empty range %q", s)
		}
		return lo, hi, nil
	}
	n, err := strconv.Atoi(s)
	return n, n, err
}
