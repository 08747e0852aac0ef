package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// syncLevel is how recent the last successful fetch is.
type syncLevel int

const (
	syncNone  syncLevel = iota // nothing fetched yet
	syncStale                  // more than staleAfter polls missed
	syncLive
)

// staleAfter is the number of poll intervals without a fetch before the
// header reports the data as stale.
const staleAfter = 3

// syncPulse summarizes fetch freshness for the header.
type syncPulse struct {
	FetchedAt time.Time
	Interval  time.Duration
}

func (p syncPulse) level(now time.Time) syncLevel {
	if p.FetchedAt.IsZero() {
		return syncNone
	}
	if p.Interval <= 0 || now.Sub(p.FetchedAt) <= staleAfter*p.Interval {
		return syncLive
	}
	return syncStale
}

// render draws "●●● live", "●○○ synced 2 minutes ago" or "○○○ connecting".
func (p syncPulse) render(s styles, now time.Time) string {
	level := p.level(now)

	active := s.accent
	var filled int
	var label string
	switch level {
	case syncLive:
		filled, label = 3, "live"
	case syncStale:
		active = s.errorText
		filled, label = 1, "synced "+humanize.RelTime(p.FetchedAt, now, "ago", "from now")
	default:
		label = "connecting"
	}

	var b strings.Builder
	for i := 0; i < 3; i++ {
		if i < filled {
			b.WriteString(active.Render("●"))
		} else {
			b.WriteString(s.muted.Render("○"))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, b.String(), " ", s.muted.Render(label))
}
