package hnsw

// visitedSet tracks visited nodes using generation tokens for O(1) reset.
type visitedSet struct {
	marks []uint32
	token uint32
}

func newVisitedSet(capacity int) *visitedSet {
	return &visitedSet{marks: make([]uint32, capacity), token: 1}
}

// visit marks id and reports whether it was unvisited.
func (v *visitedSet) visit(id uint32) bool {
	if int(id) >= len(v.marks) {
		grown := make([]uint32, max(2*len(v.marks), int(id)+1))
		copy(grown, v.marks)
		v.marks = grown
	}
	if v.marks[id] == v.token {
		return false
	}
	v.marks[id] = v.token
	return true
}

// reset starts a new generation. Clears on token overflow.
func (v *visitedSet) reset() {
	v.token++
	if v.token == 0 {
		clear(v.marks)
		v.token = 1
	}
}
