package analytics

// window is a bounded FIFO that keeps the most recent entries.
type window[T any] struct {
	items []T
	limit int
}

func newWindow[T any](limit int) *window[T] {
	return &window[T]{items: make([]T, 0, limit), limit: limit}
}

func (w *window[T]) push(v T) {
	if len(w.items) == w.limit {
		copy(w.items, w.items[1:])
		w.items = w.items[:w.limit-1]
	}
	w.items = append(w.items, v)
}

func (w *window[T]) len() int { return len(w.items) }

func (w *window[T]) snapshot() []T {
	return append([]T(nil), w.items...)
}
