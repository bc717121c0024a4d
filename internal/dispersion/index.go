package dispersion

import "github.com/sells-group/geosample-cli/internal/model"

// selectionIndex owns the mutable selection state during a run: the ordered
// members plus an id-to-position map for membership checks. All mutation
// goes through add/replaceAt so the two structures never drift.
type selectionIndex struct {
	members []model.City
	pos     map[int64]int
}

func newSelectionIndex(capacity int) *selectionIndex {
	return &selectionIndex{
		members: make([]model.City, 0, capacity),
		pos:     make(map[int64]int, capacity),
	}
}

func indexFromSelection(sel model.Selection) *selectionIndex {
	x := newSelectionIndex(len(sel))
	for _, c := range sel {
		x.add(c)
	}
	return x
}

func (x *selectionIndex) add(c model.City) {
	x.pos[c.ID] = len(x.members)
	x.members = append(x.members, c)
}

// replaceAt swaps the member at position i for c, keeping size fixed.
func (x *selectionIndex) replaceAt(i int, c model.City) {
	delete(x.pos, x.members[i].ID)
	x.members[i] = c
	x.pos[c.ID] = i
}

func (x *selectionIndex) contains(id int64) bool {
	_, ok := x.pos[id]
	return ok
}

func (x *selectionIndex) size() int { return len(x.members) }

// selection returns a copy of the current members.
func (x *selectionIndex) selection() model.Selection {
	out := make(model.Selection, len(x.members))
	copy(out, x.members)
	return out
}
