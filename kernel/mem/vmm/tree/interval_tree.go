// Package tree implements the ordered free-interval set that backs
// kernel/mem/vmm's VMAAllocator, built on github.com/google/btree's
// generic BTreeG. Any balanced ordered structure satisfies the
// ReturnInterval/FindLen contract; a B-tree keeps node allocations
// infrequent compared to one-node-per-interval binary trees.
package tree

import (
	"github.com/google/btree"
	"golang.org/x/exp/constraints"
)

// degree is the BTreeG branching factor. Free-interval sets in a single
// address space are small (dozens to low hundreds of live VMAs), so a
// modest degree keeps node allocations infrequent without over-sizing
// each node.
const degree = 16

// interval is a maximal free range [start, start+length). Ordered by
// start address only: two intervals with the same start can never be
// simultaneously present in a well-formed free set.
type interval[K constraints.Unsigned] struct {
	start  K
	length K
}

func less[K constraints.Unsigned](a, b interval[K]) bool {
	return a.start < b.start
}

// IntervalTree is an ordered set of disjoint, non-empty free intervals
// keyed by start address. It is not safe for concurrent use; callers
// serialize access (kernel/mem/vmm.VMAAllocator does so with a
// spinlock).
type IntervalTree[K constraints.Unsigned] struct {
	t *btree.BTreeG[interval[K]]
}

// New creates an empty IntervalTree.
func New[K constraints.Unsigned]() *IntervalTree[K] {
	return &IntervalTree[K]{t: btree.NewG[interval[K]](degree, less[K])}
}

// ReturnInterval inserts [addr, addr+length) into the free set, merging
// with an abutting predecessor and/or successor interval if either is
// adjacent.
func (a *IntervalTree[K]) ReturnInterval(addr, length K) {
	merged := interval[K]{start: addr, length: length}

	if pred, ok := a.predecessor(addr); ok && pred.start+pred.length == addr {
		a.t.Delete(pred)
		merged.start = pred.start
		merged.length += pred.length
	}
	if succ, ok := a.successor(merged.start + merged.length); ok && merged.start+merged.length == succ.start {
		a.t.Delete(succ)
		merged.length += succ.length
	}

	a.t.ReplaceOrInsert(merged)
}

// FindLen performs a first-fit walk over the free set (lowest address
// first) and returns the start of an interval of at least length bytes,
// splitting off and re-inserting the remainder if the match is larger
// than requested. ok is false if no interval is large enough.
func (a *IntervalTree[K]) FindLen(length K) (start K, ok bool) {
	var match interval[K]
	found := false

	a.t.Ascend(func(item interval[K]) bool {
		if item.length >= length {
			match, found = item, true
			return false
		}
		return true
	})
	if !found {
		return 0, false
	}

	a.t.Delete(match)
	if remainder := match.length - length; remainder > 0 {
		a.t.ReplaceOrInsert(interval[K]{start: match.start + length, length: remainder})
	}
	return match.start, true
}

// Len returns the number of disjoint free intervals currently tracked.
func (a *IntervalTree[K]) Len() int {
	return a.t.Len()
}

// predecessor returns the free interval with the greatest start strictly
// less than addr, if any.
func (a *IntervalTree[K]) predecessor(addr K) (interval[K], bool) {
	var found interval[K]
	ok := false
	a.t.DescendLessOrEqual(interval[K]{start: addr}, func(item interval[K]) bool {
		if item.start < addr {
			found, ok = item, true
		}
		return false
	})
	return found, ok
}

// successor returns the free interval with the smallest start greater
// than or equal to addr, if any.
func (a *IntervalTree[K]) successor(addr K) (interval[K], bool) {
	var found interval[K]
	ok := false
	a.t.AscendGreaterOrEqual(interval[K]{start: addr}, func(item interval[K]) bool {
		found, ok = item, true
		return false
	})
	return found, ok
}
