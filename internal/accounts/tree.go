package accounts

import "github.com/cleared-dev/homebook/internal/model"

// Tree is an in-memory parent-id index over a chart snapshot.
type Tree struct {
	byID map[int64]model.Account
}

// NewTree indexes accounts by id.
func NewTree(accounts []model.Account) *Tree {
	byID := make(map[int64]model.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}
	return &Tree{byID: byID}
}

// Get returns an account by id.
func (t *Tree) Get(id int64) (model.Account, bool) {
	a, ok := t.byID[id]
	return a, ok
}

// Root walks parent links up to the topmost known ancestor. A dangling parent
// or a cycle stops the walk at the last account reached.
func (t *Tree) Root(a model.Account) model.Account {
	seen := map[int64]bool{a.ID: true}
	current := a
	for current.ParentID != 0 {
		parent, ok := t.byID[current.ParentID]
		if !ok || seen[parent.ID] {
			break
		}
		seen[parent.ID] = true
		current = parent
	}
	return current
}

// Classify attaches the root name and household group to an account.
func (t *Tree) Classify(a model.Account) Classified {
	root := t.Root(a)
	return Classified{Account: a, RootName: root.Name, Group: GroupFor(a.Type, root.Name)}
}
