package widgets

// Marquee scrolls text that is wider than a fixed number of characters.
type Marquee struct {
	runes []rune
	width int
}

// NewMarquee creates a marquee showing width characters of text.
func NewMarquee(text string, width int) *Marquee {
	return &Marquee{runes: []rune("    " + text), width: width}
}

// Scrolls reports whether the text is long enough to move.
func (m *Marquee) Scrolls() bool {
	return len(m.runes) > m.width
}

// Text returns the visible text without advancing.
func (m *Marquee) Text() string {
	return string(m.runes)
}

// Step rotates the text left by one character and returns it.
func (m *Marquee) Step() string {
	if !m.Scrolls() {
		return string(m.runes)
	}
	first := m.runes[0]
	copy(m.runes, m.runes[1:])
	m.runes[len(m.runes)-1] = first
	return string(m.runes)
}
