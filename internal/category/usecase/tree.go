package usecase

import "github.com/agriconnectke/marketplace-service/internal/model"

// forest indexes a flat category list by id and by parent.
type forest struct {
	all      []model.Category
	byID     map[string]int
	byParent map[string][]int
}

func newForest(all []model.Category) *forest {
	f := &forest{
		all:      all,
		byID:     make(map[string]int, len(all)),
		byParent: make(map[string][]int),
	}
	for i, c := range all {
		f.byID[c.ID] = i
		if c.ParentID != nil {
			f.byParent[*c.ParentID] = append(f.byParent[*c.ParentID], i)
		}
	}
	return f
}

func (f *forest) parentOf(id string) (string, bool) {
	i, ok := f.byID[id]
	if !ok || f.all[i].ParentID == nil {
		return "", false
	}
	return *f.all[i].ParentID, true
}

// level is the number of ancestors of id.
func (f *forest) level(id string) int {
	n := 0
	for p, ok := f.parentOf(id); ok && n <= len(f.all); p, ok = f.parentOf(p) {
		n++
	}
	return n
}

// hasAncestor reports whether target is start or one of its ancestors.
func (f *forest) hasAncestor(start, target string) bool {
	cur := start
	for steps := 0; steps <= len(f.all); steps++ {
		if cur == target {
			return true
		}
		p, ok := f.parentOf(cur)
		if !ok {
			return false
		}
		cur = p
	}
	return true
}

func (f *forest) build(i, level int) model.Category {
	c := f.all[i]
	c.HierarchyLevel = level
	children := f.byParent[c.ID]
	c.Children = make([]model.Category, 0, len(children))
	if level > len(f.all) {
		return c
	}
	for _, j := range children {
		c.Children = append(c.Children, f.build(j, level+1))
	}
	return c
}

func (f *forest) subtree(id string) (*model.Category, bool) {
	i, ok := f.byID[id]
	if !ok {
		return nil, false
	}
	c := f.build(i, f.level(id))
	return &c, true
}

func (f *forest) roots() []model.Category {
	roots := []model.Category{}
	for i, c := range f.all {
		if c.ParentID == nil {
			roots = append(roots, f.build(i, 0))
		}
	}
	return roots
}
