package messenger

import (
	"strings"
	"sync"
)

// Draft is the text being composed for the active conversation. It is safe
// for concurrent use: the presentation layer edits it while a submission
// may be in flight.
type Draft struct {
	mu   sync.Mutex
	text string
}

// NewDraft returns a draft holding text.
func NewDraft(text string) *Draft {
	return &Draft{text: text}
}

// Text returns the current contents.
func (d *Draft) Text() string {
	if d == nil {
		return ""
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.text
}

// Set replaces the contents.
func (d *Draft) Set(text string) {
	d.mu.Lock()
	d.text = text
	d.mu.Unlock()
}

// Clear empties the draft.
func (d *Draft) Clear() {
	d.Set("")
}

// ClearIf empties the draft only if it still holds sent, and reports
// whether it did. Text edited after sent was read is kept.
func (d *Draft) ClearIf(sent string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.text != sent {
		return false
	}
	d.text = ""
	return true
}

// Blank reports whether the draft has no visible characters.
func (d *Draft) Blank() bool {
	return strings.TrimSpace(d.Text()) == ""
}
