package diag

import (
	"github.com/emirpasic/gods/trees/redblacktree"
)

// SizeCount is one bin of a cluster size histogram.
type SizeCount struct {
	Size  int
	Count int
}

// SizeHistogram tallies cluster sizes, keeping bins ordered by size.
type SizeHistogram struct {
	bins  *redblacktree.Tree
	total int
}

func NewSizeHistogram() *SizeHistogram {
	return &SizeHistogram{
		bins: redblacktree.NewWithIntComparator(),
	}
}

// Add tallies n clusters of the given size.
func (h *SizeHistogram) Add(size, n int) {
	if n <= 0 {
		return
	}
	count := n
	if prev, found := h.bins.Get(size); found {
		count += prev.(int)
	}
	h.bins.Put(size, count)
	h.total += n
}

// Merge adds every bin of the given counts.
func (h *SizeHistogram) Merge(counts []SizeCount) {
	for _, sc := range counts {
		h.Add(sc.Size, sc.Count)
	}
}

// Total returns the number of clusters tallied.
func (h *SizeHistogram) Total() int {
	return h.total
}

// Counts returns the bins in increasing size order.
func (h *SizeHistogram) Counts() []SizeCount {
	counts := make([]SizeCount, 0, h.bins.Size())
	itr := h.bins.Iterator()
	for itr.Next() {
		counts = append(counts, SizeCount{
			Size:  itr.Key().(int),
			Count: itr.Value().(int),
		})
	}
	return counts
}

// Max returns the largest size tallied, or 0 if empty.
func (h *SizeHistogram) Max() int {
	if node := h.bins.Right(); node != nil {
		return node.Key.(int)
	}
	return 0
}

func (h *SizeHistogram) Clear() {
	h.bins.Clear()
	h.total = 0
}
