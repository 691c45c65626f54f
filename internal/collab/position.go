package collab

// Position locates a point in a document. A flat character offset is a
// length-1 position; a block-tree node is the index path from the root.
// Callers must never construct an empty position.
type Position []int

// CommonPrefixLen returns the number of leading indices shared by a and b.
func CommonPrefixLen(a, b Position) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

// Compare orders positions lexicographically, index by index. A position that
// is a strict prefix of another sorts before it.
func Compare(a, b Position) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// IsPrefix reports whether a is a prefix of b.
func IsPrefix(a, b Position) bool {
	if len(a) > len(b) {
		return false
	}
	for i, idx := range a {
		if b[i] != idx {
			return false
		}
	}
	return true
}

func (p Position) clone() Position {
	if p == nil {
		return nil
	}
	out := make(Position, len(p))
	copy(out, p)
	return out
}

// Equal reports whether two positions address the same point.
func (p Position) Equal(other Position) bool {
	return Compare(p, other) == 0
}
