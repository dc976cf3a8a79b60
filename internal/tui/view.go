package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/crewpm/internal/tui/styles"
	"github.com/Iron-Ham/crewpm/internal/util"
)

// sidebarWidth is the fixed width of the phase list.
const sidebarWidth = 30

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(styles.Header.Render("crewpm"))
	b.WriteString("\n")

	switch m.screen {
	case screenInput:
		b.WriteString(styles.Subtitle.Render("What should the project team deliver?"))
		b.WriteString("\n\n")
		b.WriteString(m.input.View())
		b.WriteString("\n")
		b.WriteString(m.helpBar([][2]string{{"ctrl+s", "start"}, {"esc", "quit"}}))
		if m.status != "waiting for request" {
			b.WriteString("\n")
			b.WriteString(styles.WarningMsg.Render(m.status))
		}

	case screenRunning:
		b.WriteString(m.statusLine(m.spinner.View() + " " + m.status))
		b.WriteString("\n")
		b.WriteString(m.body())
		b.WriteString("\n")
		b.WriteString(m.helpBar([][2]string{{"↑/↓", "scroll"}, {"ctrl+c", "abort"}}))

	case screenDone:
		if m.err != nil {
			b.WriteString(styles.ErrorMsg.Render("✗ " + m.err.Error()))
		} else {
			b.WriteString(styles.SuccessMsg.Render("✓ deliverable: " + m.finalPath))
		}
		b.WriteString("\n")
		b.WriteString(m.body())
		b.WriteString("\n")
		b.WriteString(m.helpBar([][2]string{{"q", "quit"}}))
	}
	return b.String()
}

func (m Model) statusLine(s string) string {
	request := util.Preview(m.request, max(m.width-lipgloss.Width(s)-6, 10))
	return styles.StatusBar.Render(s) + "  " + styles.Muted.Render(request)
}

func (m Model) body() string {
	return lipgloss.JoinHorizontal(lipgloss.Top,
		m.sidebar(),
		"  ",
		m.log.View(),
	)
}

func (m Model) sidebar() string {
	var b strings.Builder
	b.WriteString(styles.Title.Render("Phases"))
	b.WriteString("\n")
	if len(m.phases) == 0 {
		b.WriteString(styles.Muted.Render("no plan yet"))
	}
	for i, row := range m.phases {
		label := fmt.Sprintf("%d. %s", i+1, row.name)
		if row.attempt > 1 {
			label += fmt.Sprintf(" (#%d)", row.attempt)
		}
		icon := lipgloss.NewStyle().Foreground(styles.StatusColor(row.state)).Render(styles.StatusIcon(row.state))
		b.WriteString(icon + " " + util.TruncateANSI(label, sidebarWidth-4) + "\n")
	}
	return styles.ContentBox.Width(sidebarWidth).Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) helpBar(keys [][2]string) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = styles.HelpKey.Render(k[0]) + " " + k[1]
	}
	return styles.HelpBar.Render(strings.Join(parts, "  "))
}
