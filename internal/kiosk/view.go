package kiosk

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/roach88/clubfridge/internal/session"
)

// View implements tea.Model.
func (m Model) View() string {
	var body string
	switch m.snap.Phase {
	case session.PhaseStarting:
		body = m.faint().Render("Starting…")
	case session.PhaseSetup:
		body = m.viewSetup()
	case session.PhaseRunning:
		body = m.viewRunning()
	case session.PhaseFailed:
		body = m.viewFailed()
	}

	parts := []string{m.viewHeader(), "", body}
	if m.snap.Notice != "" {
		parts = append(parts, "", m.viewNotice())
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) viewHeader() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(m.theme.Accent).Render("ClubFridge")

	var markers []string
	if m.snap.Offline {
		markers = append(markers, m.faint().Render("offline"))
	}
	if m.snap.UpdateVersion != "" {
		markers = append(markers, lipgloss.NewStyle().Foreground(m.theme.Notice).
			Render("update "+m.snap.UpdateVersion+" available (F5)"))
	}
	if len(markers) == 0 {
		return title
	}
	return title + "  " + strings.Join(markers, "  ")
}

func (m Model) viewNotice() string {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.Notice).
		Foreground(m.theme.Notice).
		Padding(0, 1).
		Render(m.snap.Notice)
}

func (m Model) viewFailed() string {
	errStyle := lipgloss.NewStyle().Foreground(m.theme.Error)
	return lipgloss.JoinVertical(lipgloss.Left,
		errStyle.Render("Start-up failed: "+m.snap.Failure),
		m.faint().Render("Restart the terminal to try again."),
	)
}

func (m Model) viewSetup() string {
	lines := []string{
		lipgloss.NewStyle().Foreground(m.theme.NormalText).Render("Enter the Vereinsflieger credentials of this terminal."),
		"",
	}
	for i, label := range fieldLabels {
		value := string(m.fields[i])
		if i == fieldPassword {
			value = strings.Repeat("•", len(m.fields[i]))
		}
		cursor := "  "
		style := lipgloss.NewStyle().Foreground(m.theme.NormalText)
		if i == m.focus {
			cursor = "> "
			style = style.Foreground(m.theme.Accent)
		}
		lines = append(lines, style.Render(m.printer.Sprintf("%s%-9s %s", cursor, label+":", value)))
	}
	lines = append(lines, "")
	if m.snap.SetupBusy {
		lines = append(lines, m.faint().Render("Checking…"))
	} else {
		lines = append(lines, m.faint().Render("tab next field · enter on password submits"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) viewRunning() string {
	s := m.snap
	if s.Member == "" {
		return lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.NewStyle().Foreground(m.theme.NormalText).Render("Scan your member key to start."),
			m.viewInput(),
		)
	}

	greeting := lipgloss.NewStyle().Bold(true).Foreground(m.theme.NormalText).Render("Hello " + s.Member)

	var rows []string
	if len(s.Lines) == 0 {
		rows = append(rows, m.faint().Render("Scan an article."))
	}
	for _, l := range s.Lines {
		rows = append(rows, m.printer.Sprintf("%3dx %-24s %8s %8s",
			l.Quantity, l.Designation, m.money(l.UnitPrice), m.money(l.Total)))
	}
	cart := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.Border).
		Padding(0, 1).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))

	total := lipgloss.NewStyle().Bold(true).Foreground(m.theme.Total).Render("Total " + m.money(s.Total))

	var status string
	switch {
	case s.CheckingOut:
		status = m.faint().Render("Saving…")
	case s.Remaining > 0:
		seconds := int(s.Remaining / time.Second)
		status = m.faint().Render(m.printer.Sprintf("Checkout in %ds · F1 pay · esc cancel", seconds))
	}

	return lipgloss.JoinVertical(lipgloss.Left, greeting, cart, total, status, m.viewInput())
}

func (m Model) viewInput() string {
	if m.snap.Input == "" {
		return ""
	}
	return m.faint().Render("> " + m.snap.Input)
}

// money formats an amount in euros for the configured language.
func (m Model) money(d decimal.Decimal) string {
	return m.printer.Sprintf("%.2f €", d.InexactFloat64())
}

func (m Model) faint() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(m.theme.FaintText)
}
