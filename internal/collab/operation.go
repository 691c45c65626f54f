package collab

import "encoding/json"

// OpType tags an Operation.
type OpType string

const (
	OpInsert  OpType = "insert"
	OpDelete  OpType = "delete"
	OpReplace OpType = "replace"
	OpMove    OpType = "move"
)

// Operation is a structural edit produced by the editor layer. The value
// payloads are opaque here; only Path (and Dest for moves) is interpreted.
type Operation struct {
	Type     OpType          `json:"op_type"`
	Path     Position        `json:"path"`
	Value    json.RawMessage `json:"value,omitempty"`
	OldValue json.RawMessage `json:"old_value,omitempty"`
	Dest     Position        `json:"destination,omitempty"`
}

func (op Operation) clone() Operation {
	out := op
	out.Path = op.Path.clone()
	out.Dest = op.Dest.clone()
	return out
}

// Transform rewrites two concurrently generated operations so that applying
// op1 then op2' yields the same document as applying op2 then op1'.
//
// Only the index at the common-prefix depth is adjusted; one call resolves one
// level of divergence, and the document layer re-runs Transform per level for
// nested structural conflicts. Move operations and cross-type combinations
// outside the four cases below pass through unchanged; that matches the
// editor's emission contract and is a documented limitation, not an oversight
// to silently widen.
func Transform(op1, op2 Operation) (Operation, Operation) {
	t1 := op1.clone()
	t2 := op2.clone()

	if len(op1.Path) == 0 || len(op2.Path) == 0 {
		return t1, t2
	}

	k := CommonPrefixLen(op1.Path, op2.Path)
	if k == 0 {
		// Disjoint regions, nothing to reconcile.
		return t1, t2
	}

	switch {
	case op1.Type == OpInsert && op2.Type == OpInsert:
		// Deterministic tie-break: the path that sorts greater moves over.
		if Compare(op1.Path, op2.Path) <= 0 {
			bumpInsert(t2.Path, k)
		} else {
			bumpInsert(t1.Path, k)
		}

	case op1.Type == OpDelete && op2.Type == OpInsert:
		if Compare(op1.Path, op2.Path) < 0 && k < len(t2.Path) && t2.Path[k] > 0 {
			t2.Path[k]--
		}

	case op1.Type == OpInsert && op2.Type == OpDelete:
		if Compare(op2.Path, op1.Path) < 0 && k < len(t1.Path) && t1.Path[k] > 0 {
			t1.Path[k]--
		}

	case op1.Type == OpDelete && op2.Type == OpDelete:
		// Deleting an already-deleted node becomes a no-op so sibling
		// indices are never decremented twice.
		if op1.Path.Equal(op2.Path) {
			t2.Type = OpReplace
			t2.Value = nil
		}
	}

	return t1, t2
}

// bumpInsert displaces an insert one slot to the right. Divergent paths move
// at the divergence depth k; identical paths have no index there, so the
// final index moves instead and the later insert lands after the earlier one.
func bumpInsert(p Position, k int) {
	if k < len(p) {
		p[k]++
		return
	}
	p[len(p)-1]++
}
