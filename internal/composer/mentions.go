package composer

import (
	"strings"

	"github.com/renato0307/conduit/internal/commands"
)

// MaxFileSuggestions caps the file mention menu
const MaxFileSuggestions = 10

func (c *Composer) openFileMenu(query string) {
	if c.opts.Files == nil {
		c.files = fileMenu{}
		return
	}

	q := strings.ToLower(query)
	var items []string
	for _, f := range c.opts.Files.Files() {
		if q == "" || strings.Contains(strings.ToLower(f), q) {
			items = append(items, f)
			if len(items) == MaxFileSuggestions {
				break
			}
		}
	}

	selected := 0
	if c.files.open && c.files.selected < len(items) {
		selected = c.files.selected
	}
	c.files = fileMenu{items: items, open: len(items) > 0, selected: selected}
}

// SelectFile inserts @path at the mention under the caret
func (c *Composer) SelectFile(path string) {
	text, caret, ok := commands.InsertMention(c.text, c.caret, path)
	c.files = fileMenu{}
	if !ok {
		c.changed()
		return
	}
	c.text = text
	c.caret = caret
	c.edited()
}

// FileMenuOpen reports whether the file mention menu is showing
func (c *Composer) FileMenuOpen() bool { return c.files.open }
