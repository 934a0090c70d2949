// Package tally counts comments per author and ranks authors.
package tally

import "sort"

// Entry is one author's count together with the order in which the author
// was first counted.
type Entry struct {
	Author    string
	Count     int
	FirstSeen int
}

// Counter maps authors to comment counts and remembers first-seen order.
// A Counter is not safe for concurrent use; callers serialize access.
type Counter struct {
	index   map[string]int // author -> position in entries
	entries []Entry        // insertion (first-seen) order
	total   int
}

// NewCounter returns an empty Counter.
func NewCounter() *Counter {
	return &Counter{index: make(map[string]int)}
}

// Add increments author by n. The first-seen position is fixed on the first
// call for an author. Empty authors and non-positive n are ignored.
func (c *Counter) Add(author string, n int) {
	if author == "" || n <= 0 {
		return
	}
	if i, ok := c.index[author]; ok {
		c.entries[i].Count += n
	} else {
		c.index[author] = len(c.entries)
		c.entries = append(c.entries, Entry{Author: author, Count: n, FirstSeen: len(c.entries)})
	}
	c.total += n
}

// Merge folds other into c. Authors new to c are appended in other's
// first-seen order. A nil other is a no-op.
func (c *Counter) Merge(other *Counter) {
	if other == nil {
		return
	}
	for _, e := range other.entries {
		c.Add(e.Author, e.Count)
	}
}

// Get returns the count for author, zero when unseen.
func (c *Counter) Get(author string) int {
	if i, ok := c.index[author]; ok {
		return c.entries[i].Count
	}
	return 0
}

// Len returns the number of distinct authors.
func (c *Counter) Len() int { return len(c.entries) }

// Total returns the sum of all counts.
func (c *Counter) Total() int { return c.total }

// Entries returns a copy of all entries in first-seen order.
func (c *Counter) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Top returns up to k entries ordered by count desc, then first-seen asc.
func (c *Counter) Top(k int) []Entry {
	if k <= 0 || len(c.entries) == 0 {
		return []Entry{}
	}
	ranked := c.Entries()
	sort.SliceStable(ranked, func(i, j int) bool {
		return less(ranked[i], ranked[j])
	})
	if k > len(ranked) {
		k = len(ranked)
	}
	return ranked[:k]
}

// less reports whether a ranks before b: higher count first, then earlier
// first-seen position.
func less(a, b Entry) bool {
	if a.Count != b.Count {
		return a.Count > b.Count
	}
	return a.FirstSeen < b.FirstSeen
}
