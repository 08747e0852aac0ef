package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/estuportal/portalchat/internal/models"
	"github.com/estuportal/portalchat/internal/timestamp"
)

const (
	defaultWidth  = 100
	defaultHeight = 30
	listWidth     = 30
	newChatLabel  = "New conversation"
)

func (m *Model) View() string {
	width, height := m.width, m.height
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}

	header := m.renderHeader(width)
	footer := m.renderFooter(width)
	bodyHeight := height - lipgloss.Height(header) - lipgloss.Height(footer)
	if bodyHeight < 3 {
		bodyHeight = 3
	}

	lw := listWidth
	if lw > width/2 {
		lw = width / 2
	}
	list := m.renderList(lw-2, bodyHeight-2)
	chat := m.renderChat(width-lw-2, bodyHeight-2)

	listPane := m.styles.pane
	chatPane := m.styles.pane
	if m.focus == focusList {
		listPane = m.styles.focused
	} else {
		chatPane = m.styles.focused
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		listPane.Width(lw-2).Height(bodyHeight-2).Render(list),
		chatPane.Width(width-lw-2).Height(bodyHeight-2).Render(chat),
	)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m *Model) renderHeader(width int) string {
	title := m.styles.header.Render("portalchat") + m.styles.muted.Render(" · "+m.chat.User()+"  ")
	title += syncPulse{FetchedAt: m.view.FetchedAt, Interval: m.interval}.render(m.styles, m.now())
	if m.status == "" {
		return title
	}
	status := m.styles.muted.Render(m.status)
	if m.failed {
		status = m.styles.errorText.Render(m.status)
	}
	gap := width - lipgloss.Width(title) - lipgloss.Width(status)
	if gap < 1 {
		gap = 1
	}
	return title + strings.Repeat(" ", gap) + status
}

func (m *Model) renderFooter(width int) string {
	var help string
	if m.focus == focusList {
		help = "↑/↓ move · enter open · tab compose · ctrl+r refresh · q quit"
	} else {
		help = "enter send · esc list · ctrl+u clear · ctrl+r refresh · ctrl+c quit"
	}
	return m.styles.muted.Render(runewidth.Truncate(help, width, "…"))
}

func (m *Model) renderList(width, height int) string {
	if len(m.view.Conversations) == 0 {
		if m.view.Empty() {
			return m.styles.muted.Render("loading…")
		}
		return m.styles.muted.Render("no conversations yet")
	}

	active := m.chat.Active()
	lines := make([]string, 0, len(m.view.Conversations)*2)
	for i, c := range m.view.Conversations {
		lines = append(lines, m.renderListEntry(c, width, i == m.cursor, c.Counterpart == active)...)
	}
	return strings.Join(clipTail(lines, height, m.cursor*2), "\n")
}

func (m *Model) renderListEntry(c models.Conversation, width int, underCursor, selected bool) []string {
	marker := "  "
	if selected {
		marker = m.styles.accent.Render("▌ ")
	}
	name := runewidth.Truncate(c.Counterpart, width-8, "…")
	clock := ""
	if m.stamps {
		clock = timestamp.Clock(c.LastTimestamp)
	}
	gap := width - 2 - runewidth.StringWidth(name) - runewidth.StringWidth(clock)
	if gap < 1 {
		gap = 1
	}
	first := marker + m.styles.peers.style(c.Counterpart).Render(name) + strings.Repeat(" ", gap) + m.styles.muted.Render(clock)

	preview := c.LastMessage
	if c.Placeholder {
		preview = newChatLabel
	}
	preview = strings.ReplaceAll(preview, "\n", " ")
	second := "  " + m.styles.muted.Render(runewidth.Truncate(preview, width-2, "…"))

	if underCursor && m.focus == focusList {
		first = m.styles.cursor.Render(first)
		second = m.styles.cursor.Render(second)
	}
	return []string{first, second}
}

func (m *Model) renderChat(width, height int) string {
	active := m.chat.Active()
	if active == "" {
		return m.styles.muted.Render("select a conversation")
	}

	title := m.styles.peers.style(active).Render(active)
	if m.view.TimelineCounterpart != active {
		title += m.styles.muted.Render("  syncing…")
	}
	input := m.renderInput(width)
	room := height - 2 - lipgloss.Height(input)

	var lines []string
	if m.view.TimelineCounterpart == active {
		for _, r := range m.view.Timeline {
			lines = append(lines, m.renderBubble(r, width)...)
		}
		if len(lines) == 0 {
			lines = []string{m.styles.muted.Render("no messages yet; say hello")}
		}
	}
	lines = clipTail(lines, room, len(lines)-1)
	for len(lines) < room {
		lines = append([]string{""}, lines...)
	}
	return strings.Join(append(append([]string{title, ""}, lines...), input), "\n")
}

func (m *Model) renderBubble(r models.MessageRecord, width int) []string {
	own := r.Sender == m.chat.User()
	style := m.styles.other
	if own {
		style = m.styles.own
	}
	maxWidth := width * 3 / 4
	if maxWidth < 10 {
		maxWidth = width
	}

	body := wrap(r.Content, maxWidth)
	if m.stamps {
		if clock := timestamp.Clock(r.Timestamp); clock != "" {
			body = append(body, m.styles.muted.Render(clock))
		}
	}
	out := make([]string, 0, len(body))
	for _, line := range body {
		rendered := style.Render(line)
		if own {
			pad := width - lipgloss.Width(rendered)
			if pad > 0 {
				rendered = strings.Repeat(" ", pad) + rendered
			}
		}
		out = append(out, rendered)
	}
	return out
}

func (m *Model) renderInput(width int) string {
	text := m.chat.Draft().Text()
	prompt := m.styles.muted.Render("> ")
	if m.focus == focusInput {
		prompt = m.styles.accent.Render("> ")
		text += "█"
	}
	if limit := width - 2; limit > 1 && runewidth.StringWidth(text) > limit {
		// Keep the end of a long draft visible.
		runes := []rune(text)
		for len(runes) > 0 && runewidth.StringWidth(string(runes))+1 > limit {
			runes = runes[1:]
		}
		text = "…" + string(runes)
	}
	return prompt + text
}

// wrap splits s on newlines and hard-wraps each line at width cells.
func wrap(s string, width int) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if width <= 0 {
			out = append(out, line)
			continue
		}
		for runewidth.StringWidth(line) > width {
			head := runewidth.Truncate(line, width, "")
			if head == "" {
				break
			}
			out = append(out, head)
			line = line[len(head):]
		}
		out = append(out, line)
	}
	return out
}

// clipTail keeps at most n lines, preferring a window that includes focus.
func clipTail(lines []string, n, focus int) []string {
	if n <= 0 {
		return nil
	}
	if len(lines) <= n {
		return lines
	}
	end := len(lines)
	if focus >= 0 && focus < len(lines) && focus+2 < end {
		end = focus + 2
		if end < n {
			end = n
		}
	}
	if end > len(lines) {
		end = len(lines)
	}
	return lines[end-n : end]
}
