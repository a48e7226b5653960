package composer

// Key names the keys the composer reacts to
type Key int

const (
	KeyRunes Key = iota
	KeyBackspace
	KeyDelete
	KeyDown
	KeyEnd
	KeyEnter
	KeyEsc
	KeyHome
	KeyLeft
	KeyRight
	KeyTab
	KeyUp
)

// KeyEvent is one key press, independent of the terminal library
type KeyEvent struct {
	Alt   bool
	Ctrl  bool
	Key   Key
	Runes []rune
	Shift bool
}

// HandleKey applies ev and reports whether the composer consumed it. The
// command menu has first claim, then the file menu, then local bindings.
func (c *Composer) HandleKey(ev KeyEvent) bool {
	if c.menu.open {
		if handled := c.commandMenuKey(ev); handled {
			return true
		}
	}
	if c.files.open {
		if handled := c.fileMenuKey(ev); handled {
			return true
		}
	}

	switch ev.Key {
	case KeyTab:
		if ev.Shift {
			return false
		}
		c.CyclePermissionMode()
	case KeyEnter:
		c.enter(ev)
	case KeyEsc:
		if c.skillInfo == nil {
			return false
		}
		c.CloseSkillInfo()
	case KeyRunes:
		c.InsertText(string(ev.Runes))
	case KeyBackspace:
		c.Backspace()
	case KeyDelete:
		c.Delete()
	case KeyLeft:
		c.MoveCaret(-1)
	case KeyRight:
		c.MoveCaret(1)
	case KeyHome:
		c.SetCaret(c.lineStart())
	case KeyEnd:
		c.SetCaret(c.lineEnd())
	default:
		return false
	}
	return true
}

func (c *Composer) commandMenuKey(ev KeyEvent) bool {
	n := len(c.menu.items)
	switch ev.Key {
	case KeyEsc:
		c.closeCommandMenu()
		c.changed()
		return true
	case KeyUp:
		if n == 0 {
			return false
		}
		c.menu.selected = (c.menu.selected - 1 + n) % n
		c.changed()
		return true
	case KeyDown:
		if n == 0 {
			return false
		}
		c.menu.selected = (c.menu.selected + 1) % n
		c.changed()
		return true
	case KeyTab, KeyEnter:
		if n == 0 || ev.Shift {
			return false
		}
		c.SelectCommand(c.menu.items[c.menu.selected])
		return true
	}
	return false
}

func (c *Composer) fileMenuKey(ev KeyEvent) bool {
	n := len(c.files.items)
	switch ev.Key {
	case KeyEsc:
		c.files = fileMenu{}
		c.changed()
		return true
	case KeyUp:
		c.files.selected = (c.files.selected - 1 + n) % n
		c.changed()
		return true
	case KeyDown:
		c.files.selected = (c.files.selected + 1) % n
		c.changed()
		return true
	case KeyTab, KeyEnter:
		if ev.Shift {
			return false
		}
		c.SelectFile(c.files.items[c.files.selected])
		return true
	}
	return false
}

// enter submits or breaks the line depending on modifiers and mode
func (c *Composer) enter(ev KeyEvent) {
	switch {
	case ev.Shift || ev.Alt:
		c.InsertText("\n")
	case c.opts.SendByCtrlEnter:
		if ev.Ctrl {
			c.Submit()
		} else {
			c.InsertText("\n")
		}
	case c.multiline && !ev.Ctrl:
		c.InsertText("\n")
	default:
		c.Submit()
	}
}

func (c *Composer) lineStart() int {
	i := c.caret
	for i > 0 && c.text[i-1] != '\n' {
		i--
	}
	return i
}

func (c *Composer) lineEnd() int {
	i := c.caret
	for i < len(c.text) && c.text[i] != '\n' {
		i++
	}
	return i
}
