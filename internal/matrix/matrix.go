// Package matrix expands a node's matrix into its concrete cells.
package matrix

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/chainrun/internal/scope"
	"github.com/felixgeelhaar/chainrun/internal/workflow"
)

// Cell is one point of a matrix: the option index chosen in every dimension
// and the fragment those options merge to.
type Cell struct {
	// Index is nil for a node without a matrix.
	Index    []int
	Fragment scope.Fragment
}

// IndexString renders the index as "0,1,0", the form keep/drop filters match.
func (c Cell) IndexString() string {
	return IndexString(c.Index)
}

// IndexString renders idx as comma separated integers.
func IndexString(idx []int) string {
	var b strings.Builder
	for i, v := range idx {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(v))
	}
	return b.String()
}

// Filter decides which candidate cells of a sparse matrix survive.
type Filter struct {
	keep *regexp.Regexp
	drop *regexp.Regexp
}

// CompileFilter compiles keep and drop. Empty patterns are not applied.
func CompileFilter(keep, drop string) (*Filter, error) {
	f := &Filter{}
	var err error
	if keep != "" {
		if f.keep, err = regexp.Compile(keep); err != nil {
			return nil, &FilterError{Filter: "keep", Pattern: keep, Err: err}
		}
	}
	if drop != "" {
		if f.drop, err = regexp.Compile(drop); err != nil {
			return nil, &FilterError{Filter: "drop", Pattern: drop, Err: err}
		}
	}
	return f, nil
}

// Match reports whether a cell with the given index string is retained.
func (f *Filter) Match(index string) bool {
	if f == nil {
		return true
	}
	if f.keep != nil && !f.keep.MatchString(index) {
		return false
	}
	if f.drop != nil && f.drop.MatchString(index) {
		return false
	}
	return true
}

// FilterError is returned by Expand when a keep or drop pattern does not compile.
type FilterError struct {
	Filter  string
	Pattern string
	Err     error
}

func (e *FilterError) Error() string {
	return "invalid " + e.Filter + " filter " + strconv.Quote(e.Pattern) + ": " + e.Err.Error()
}

func (e *FilterError) Unwrap() error { return e.Err }

// Expand returns the cells of m in index order: the first dimension varies
// slowest and the last fastest. Fragments of later dimensions win on
// collision. A nil matrix has one cell with a nil index; a matrix with no
// dimensions, or with an empty one, has none.
func Expand(m *workflow.Matrix) ([]Cell, error) {
	if m == nil {
		return []Cell{{Fragment: scope.Fragment{}}}, nil
	}

	var filter *Filter
	if m.Sparse != nil {
		var err error
		if filter, err = CompileFilter(m.Sparse.Keep, m.Sparse.Drop); err != nil {
			return nil, err
		}
	}

	dims := m.Dimensions()
	if len(dims) == 0 {
		return nil, nil
	}
	total := 1
	for _, d := range dims {
		total *= len(d)
	}
	if total == 0 {
		return nil, nil
	}

	cells := make([]Cell, 0, total)
	idx := make([]int, len(dims))
	for {
		key := IndexString(idx)
		if filter.Match(key) {
			f, err := merge(dims, idx)
			if err != nil {
				return nil, fmt.Errorf("cell %s: %w", key, err)
			}
			cells = append(cells, Cell{Index: append([]int(nil), idx...), Fragment: f})
		}
		if !next(idx, dims) {
			break
		}
	}
	return cells, nil
}

// next advances idx like an odometer and reports false after the last cell.
func next(idx []int, dims [][]scope.Fragment) bool {
	for d := len(idx) - 1; d >= 0; d-- {
		idx[d]++
		if idx[d] < len(dims[d]) {
			return true
		}
		idx[d] = 0
	}
	return false
}

func merge(dims [][]scope.Fragment, idx []int) (scope.Fragment, error) {
	var (
		f   scope.Fragment
		err error
	)
	for d, i := range idx {
		if f, err = f.Merge(dims[d][i]); err != nil {
			return scope.Fragment{}, err
		}
	}
	return f, nil
}
