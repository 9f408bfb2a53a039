package index

import "github.com/hupe1980/vecstore/internal/queue"

// TopK keeps the k closest candidates offered to it.
type TopK struct {
	k  int
	pq *queue.PriorityQueue
}

// NewTopK returns a collector for the k closest candidates.
func NewTopK(k int) *TopK {
	return &TopK{k: k, pq: queue.NewMax(k + 1)}
}

// Offer considers a candidate. Among equal distances the lower id wins.
func (t *TopK) Offer(id uint32, dist float32) {
	if t.k <= 0 {
		return
	}
	if t.pq.Len() < t.k {
		t.pq.Push(queue.Item{ID: id, Distance: dist})
		return
	}
	top, _ := t.pq.Top()
	if dist < top.Distance || (dist == top.Distance && id < top.ID) {
		t.pq.Pop()
		t.pq.Push(queue.Item{ID: id, Distance: dist})
	}
}

// Len returns the number of collected candidates.
func (t *TopK) Len() int { return t.pq.Len() }

// Results drains the collector in ascending distance.
func (t *TopK) Results() []Result {
	items := t.pq.Drain()
	out := make([]Result, len(items))
	for i, it := range items {
		out[i] = Result{ID: it.ID, Distance: it.Distance}
	}
	return out
}
