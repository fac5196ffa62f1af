package session

// snapshot captures an image's stored state immediately before a
// mutating action so undo can put it back. Existed is false when the
// image had no row at all; undo then resets the row to defaults.
type snapshot struct {
	ImagePath  string
	PrevRating int
	PrevMarked bool
	Existed    bool
}

// history is a fixed-capacity ring of snapshots. Pushing beyond the
// capacity evicts the oldest entry; a capacity of zero disables undo.
type history struct {
	buf  []snapshot
	head int // next write position
	size int
}

func newHistory(capacity int) *history {
	return &history{buf: make([]snapshot, capacity)}
}

func (h *history) push(s snapshot) {
	if len(h.buf) == 0 {
		return
	}
	h.buf[h.head] = s
	h.head = (h.head + 1) % len(h.buf)
	if h.size < len(h.buf) {
		h.size++
	}
}

func (h *history) pop() (snapshot, bool) {
	if h.size == 0 {
		return snapshot{}, false
	}
	h.head = (h.head - 1 + len(h.buf)) % len(h.buf)
	h.size--
	return h.buf[h.head], true
}

func (h *history) len() int { return h.size }
