package agent

// ActionHistory keeps descriptions of successfully executed actions: a short
// window for the oracle and the full list for the run report.
type ActionHistory struct {
	lines    []string
	maxLines int

	fullLines []string
}

func NewActionHistory(maxLines int) *ActionHistory {
	if maxLines <= 0 {
		maxLines = 5
	}
	return &ActionHistory{maxLines: maxLines}
}

func (m *ActionHistory) Add(description string) {
	if description == "" {
		return
	}
	m.fullLines = append(m.fullLines, description)

	m.lines = append(m.lines, description)
	if len(m.lines) > m.maxLines {
		m.lines = m.lines[len(m.lines)-m.maxLines:]
	}
}

// Recent returns the last maxLines entries, oldest first.
func (m *ActionHistory) Recent() []string {
	if len(m.lines) == 0 {
		return nil
	}
	out := make([]string, len(m.lines))
	copy(out, m.lines)
	return out
}

func (m *ActionHistory) All() []string {
	if len(m.fullLines) == 0 {
		return nil
	}
	out := make([]string, len(m.fullLines))
	copy(out, m.fullLines)
	return out
}

func (m *ActionHistory) Len() int { return len(m.fullLines) }
