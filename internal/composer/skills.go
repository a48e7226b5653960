package composer

import (
	"slices"
	"sort"
	"strings"
	"unicode"

	"github.com/renato0307/conduit/internal/domain"
)

// SkillSpan is an occurrence of an inserted skill's name in the buffer
type SkillSpan struct {
	End   int
	Name  string
	Start int
}

// SkillInfo describes the skill under a hovered or touched span
type SkillInfo struct {
	AllowedTools  []string
	Compatibility string
	Description   string
	End           int
	Name          string
	Start         int
	Usage         string
}

func isNameRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '/' || r == ':'
}

// SkillSpans returns every word-bounded occurrence of an inserted skill name, in order
func (c *Composer) SkillSpans() []SkillSpan {
	var spans []SkillSpan
	for name := range c.insertedSkills {
		spans = append(spans, findWord(c.text, name)...)
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
	return spans
}

func findWord(text []rune, name string) []SkillSpan {
	needle := []rune(name)
	if len(needle) == 0 {
		return nil
	}
	var spans []SkillSpan
	for i := 0; i+len(needle) <= len(text); i++ {
		if !slices.Equal(text[i:i+len(needle)], needle) {
			continue
		}
		end := i + len(needle)
		if i > 0 && isNameRune(text[i-1]) {
			continue
		}
		if end < len(text) && isNameRune(text[end]) {
			continue
		}
		spans = append(spans, SkillSpan{End: end, Name: name, Start: i})
		i = end - 1
	}
	return spans
}

// pruneSkills forgets inserted skills whose name no longer appears
func (c *Composer) pruneSkills() {
	for name := range c.insertedSkills {
		if len(findWord(c.text, name)) == 0 {
			delete(c.insertedSkills, name)
		}
	}
	if c.skillInfo != nil && len(findWord(c.text, c.skillInfo.Name)) == 0 {
		c.skillInfo = nil
	}
}

// skillAt returns the span containing rune offset pos
func (c *Composer) skillAt(pos int) (SkillSpan, bool) {
	for _, s := range c.SkillSpans() {
		if pos >= s.Start && pos < s.End {
			return s, true
		}
	}
	return SkillSpan{}, false
}

// ArgumentHint returns the placeholder shown at the caret while a skill name
// has just been typed and nothing follows it. The hint is never written to
// the buffer.
func (c *Composer) ArgumentHint() string {
	if strings.TrimSpace(string(c.text[c.caret:])) != "" {
		return ""
	}

	start := c.caret
	for start > 0 && !unicode.IsSpace(c.text[start-1]) {
		start--
	}
	word := string(c.text[start:c.caret])
	if !strings.HasPrefix(word, "/") {
		return ""
	}

	skill, ok := c.insertedSkills[word]
	if !ok && c.opts.Resolver != nil {
		cmd, found := c.opts.Resolver.Lookup(word)
		ok = found && cmd.IsSkill()
		skill = cmd
	}
	if !ok || skill.Metadata == nil {
		return ""
	}
	return skill.Metadata.ArgumentHint
}

// OpenSkillInfo shows the info surface for the skill at rune offset pos.
// It reports whether a skill was there.
func (c *Composer) OpenSkillInfo(pos int) bool {
	span, ok := c.skillAt(pos)
	if !ok {
		return false
	}
	skill := c.insertedSkills[span.Name]

	info := &SkillInfo{
		Description: skill.Description,
		End:         span.End,
		Name:        span.Name,
		Start:       span.Start,
	}
	if md := skill.Metadata; md != nil {
		info.AllowedTools = slices.Clone(md.AllowedTools)
		info.Compatibility = md.Compatibility
		info.Usage = md.Usage
		if info.Usage == "" {
			info.Usage = md.ArgumentHint
		}
	}
	c.skillInfo = info
	c.changed()
	return true
}

// CloseSkillInfo hides the info surface
func (c *Composer) CloseSkillInfo() {
	if c.skillInfo == nil {
		return
	}
	c.skillInfo = nil
	c.changed()
}

// InsertSkillUsage replaces the span that opened the info surface with the
// skill's name followed by its usage text, keeping single spaces around it
func (c *Composer) InsertSkillUsage() bool {
	info := c.skillInfo
	if info == nil || info.Usage == "" {
		return false
	}
	if info.End > len(c.text) || string(c.text[info.Start:info.End]) != info.Name {
		c.CloseSkillInfo()
		return false
	}

	before := c.text[:info.Start]
	rest := []rune(strings.TrimLeftFunc(string(c.text[info.End:]), unicode.IsSpace))

	var out []rune
	out = append(out, before...)
	if len(before) > 0 && !unicode.IsSpace(before[len(before)-1]) {
		out = append(out, ' ')
	}
	out = append(out, []rune(info.Name+" "+info.Usage)...)
	caret := len(out)
	if len(rest) > 0 {
		out = append(out, ' ')
		out = append(out, rest...)
	}

	c.skillInfo = nil
	c.text = out
	c.caret = caret
	c.edited()
	return true
}
