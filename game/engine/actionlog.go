package engine

// ActionLog is the bounded list of recent user-visible action lines. Once
// full, the oldest line is evicted.
type ActionLog struct {
	limit int
	lines []string
}

// NewActionLog creates a log holding at most limit lines (MaxLogLines when
// limit <= 0)
func NewActionLog(limit int) *ActionLog {
	if limit <= 0 {
		limit = MaxLogLines
	}
	return &ActionLog{limit: limit}
}

// Append adds a line, evicting the oldest past the limit
func (l *ActionLog) Append(line string) {
	l.lines = append(l.lines, line)
	if over := len(l.lines) - l.limit; over > 0 {
		l.lines = append(l.lines[:0:0], l.lines[over:]...)
	}
}

// Lines returns a copy of the log, oldest first
func (l *ActionLog) Lines() []string {
	return append([]string(nil), l.lines...)
}

// Tail returns up to n of the most recent lines
func (l *ActionLog) Tail(n int) []string {
	if n <= 0 || n >= len(l.lines) {
		return l.Lines()
	}
	return append([]string(nil), l.lines[len(l.lines)-n:]...)
}

func (l *ActionLog) Len() int {
	return len(l.lines)
}
