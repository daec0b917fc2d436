package portal

import (
	"encoding/json"
	"sort"

	"github.com/jrsteele09/restaurant-portal/internal/utils"
)

// MenuItem is a node of the sitemap. Rights are shown to the user, not enforced.
type MenuItem struct {
	ID          int               `json:"id"`
	ParentID    *int              `json:"parentId"`
	To          *string           `json:"to"`
	Label       string            `json:"label"`
	AppCode     string            `json:"appCode"`
	Status      int               `json:"status"`
	Ord         int               `json:"ord"`
	Type        string            `json:"type"`
	IncludeMenu int               `json:"includeMenu"`
	Rights      []json.RawMessage `json:"rights"`
	Items       []MenuItem        `json:"items"`
}

type Menu []MenuItem

// Route is the item's link, "" for group nodes
func (m MenuItem) Route() string {
	return utils.Value(m.To)
}

func (m MenuItem) IsVisible() bool {
	return m.IncludeMenu == 1 && m.Status == 1
}

// Walk visits items depth first, passing the depth of each. Returning false skips the children.
func (menu Menu) Walk(fn func(item MenuItem, depth int) bool) {
	walk(menu, 0, fn)
}

func walk(items []MenuItem, depth int, fn func(MenuItem, int) bool) {
	for _, item := range items {
		if fn(item, depth) {
			walk(item.Items, depth+1, fn)
		}
	}
}

func (menu Menu) Find(id int) (MenuItem, bool) {
	var found MenuItem
	ok := false
	menu.Walk(func(item MenuItem, _ int) bool {
		if ok {
			return false
		}
		if item.ID == id {
			found, ok = item, true
			return false
		}
		return true
	})
	return found, ok
}

// Visible returns a copy holding only visible items at every level, ordered by Ord
func (menu Menu) Visible() Menu {
	out := make(Menu, 0, len(menu))
	for _, item := range menu {
		if !item.IsVisible() {
			continue
		}
		item.Items = Menu(item.Items).Visible()
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Ord < out[j].Ord })
	return out
}

// Count is the number of items in the tree
func (menu Menu) Count() int {
	n := 0
	menu.Walk(func(MenuItem, int) bool {
		n++
		return true
	})
	return n
}
