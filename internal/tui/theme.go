package tui

import (
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Theme holds the colors of the chat client.
type Theme struct {
	Name     string
	Fg       string
	Muted    string
	Accent   string
	Border   string
	Own      string
	Other    string
	Selected string
	Error    string
	// PeerPalette colors counterpart names (ANSI-256 codes).
	PeerPalette []string
}

// Themes lists available palettes by name.
var Themes = map[string]Theme{
	"default": {
		Name: "default", Fg: "252", Muted: "244", Accent: "39", Border: "240",
		Own: "117", Other: "252", Selected: "236", Error: "203",
		PeerPalette: []string{"33", "39", "45", "69", "75", "81", "99", "111", "147", "183"},
	},
	"dark": {
		Name: "dark", Fg: "255", Muted: "245", Accent: "81", Border: "238",
		Own: "159", Other: "255", Selected: "235", Error: "197",
		PeerPalette: []string{"81", "87", "117", "123", "153", "159", "189", "219"},
	},
	"light": {
		Name: "light", Fg: "235", Muted: "242", Accent: "25", Border: "250",
		Own: "24", Other: "235", Selected: "254", Error: "160",
		PeerPalette: []string{"18", "19", "25", "54", "55", "90", "94", "130"},
	},
}

// LookupTheme returns the named theme.
func LookupTheme(name string) (Theme, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = "default"
	}
	theme, ok := Themes[key]
	if !ok {
		return Theme{}, fmt.Errorf("invalid theme %q", name)
	}
	return theme, nil
}

type styles struct {
	header    lipgloss.Style
	muted     lipgloss.Style
	accent    lipgloss.Style
	errorText lipgloss.Style
	pane      lipgloss.Style
	focused   lipgloss.Style
	cursor    lipgloss.Style
	own       lipgloss.Style
	other     lipgloss.Style
	peers     *peerColors
}

func newStyles(t Theme) styles {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(t.Border))
	return styles{
		header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(t.Accent)),
		muted:     lipgloss.NewStyle().Foreground(lipgloss.Color(t.Muted)),
		accent:    lipgloss.NewStyle().Foreground(lipgloss.Color(t.Accent)),
		errorText: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Error)),
		pane:      border,
		focused:   border.BorderForeground(lipgloss.Color(t.Accent)),
		cursor:    lipgloss.NewStyle().Background(lipgloss.Color(t.Selected)),
		own:       lipgloss.NewStyle().Foreground(lipgloss.Color(t.Own)),
		other:     lipgloss.NewStyle().Foreground(lipgloss.Color(t.Other)),
		peers:     newPeerColors(t.PeerPalette),
	}
}

// peerColors gives every counterpart a stable color across redraws.
type peerColors struct {
	palette []string

	mu    sync.Mutex
	cache map[string]lipgloss.Style
}

func newPeerColors(palette []string) *peerColors {
	return &peerColors{
		palette: append([]string(nil), palette...),
		cache:   make(map[string]lipgloss.Style, 32),
	}
}

func (p *peerColors) style(name string) lipgloss.Style {
	key := strings.ToLower(strings.TrimSpace(name))

	p.mu.Lock()
	defer p.mu.Unlock()
	if style, ok := p.cache[key]; ok {
		return style
	}
	style := lipgloss.NewStyle().Bold(true)
	if len(p.palette) > 0 {
		h := fnv.New32a()
		_, _ = h.Write([]byte(key))
		style = style.Foreground(lipgloss.Color(p.palette[h.Sum32()%uint32(len(p.palette))]))
	}
	p.cache[key] = style
	return style
}
