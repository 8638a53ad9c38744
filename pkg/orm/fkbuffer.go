package orm

// fkBuffer is the FIFO of foreign key values captured while hydrating the
// parents of one fetch, consumed once per parent while resolving
// many-to-one relations. It lives on the stack of a single fetch call.
type fkBuffer struct {
	values []any
	head   int
}

func newFKBuffer(capacity int) *fkBuffer {
	return &fkBuffer{values: make([]any, 0, capacity)}
}

func (b *fkBuffer) push(v any) {
	b.values = append(b.values, v)
}

// pop returns the oldest pending value. ok is false once the buffer is
// drained.
func (b *fkBuffer) pop() (v any, ok bool) {
	if b.head >= len(b.values) {
		return nil, false
	}
	v = b.values[b.head]
	b.values[b.head] = nil
	b.head++
	return v, true
}

func (b *fkBuffer) len() int {
	return len(b.values) - b.head
}
