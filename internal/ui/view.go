package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Kabilan108/claude-bar/internal/store"
)

const barWidth = 24

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	planStyle   = lipgloss.NewStyle().Faint(true)
	labelStyle  = lipgloss.NewStyle().Width(14)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	staleStyle  = lipgloss.NewStyle().Faint(true)
	costStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	footerStyle = lipgloss.NewStyle().Faint(true)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
)

func (a *App) View() string {
	var cards []string
	for _, v := range a.views {
		cards = append(cards, cardStyle.Render(renderAccount(v, time.Now())))
	}
	out := strings.Join(cards, "\n")
	footer := "q quit · r refresh"
	if a.lastNote != "" {
		footer += " · " + a.lastNote
	}
	return out + "\n" + footerStyle.Render(footer) + "\n"
}

func renderAccount(v store.AccountView, now time.Time) string {
	var b strings.Builder

	header := titleStyle.Render(v.Kind.DisplayName())
	if v.Snapshot != nil && v.Snapshot.Identity.Plan != "" {
		header += " " + planStyle.Render(v.Snapshot.Identity.Plan)
	}
	b.WriteString(header + "\n")

	if v.Error != "" {
		b.WriteString(errorStyle.Render("! "+v.Error) + "\n")
		if v.Snapshot != nil {
			b.WriteString(staleStyle.Render("showing last known data") + "\n")
		}
	}

	if v.Snapshot == nil {
		if v.Error == "" {
			b.WriteString(staleStyle.Render("waiting for data...") + "\n")
		}
		return strings.TrimRight(b.String(), "\n")
	}

	writeWindow := func(label string, used float64, resetsAt time.Time) {
		line := labelStyle.Render(label) + Bar(used, barWidth) +
			fmt.Sprintf(" %5.1f%%", used*100)
		if !resetsAt.IsZero() {
			line += staleStyle.Render("  resets " + FormatUntil(resetsAt.Sub(now)))
		}
		b.WriteString(line + "\n")
	}

	if w := v.Snapshot.Primary; w != nil {
		writeWindow(windowLabel(w.WindowMinutes, "session"), w.UsedFraction, w.ResetsAt)
	}
	if w := v.Snapshot.Secondary; w != nil {
		writeWindow(windowLabel(w.WindowMinutes, "weekly"), w.UsedFraction, w.ResetsAt)
	}
	names := make([]string, 0, len(v.Snapshot.CarveOuts))
	for name := range v.Snapshot.CarveOuts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		w := v.Snapshot.CarveOuts[name]
		writeWindow(name+" weekly", w.UsedFraction, w.ResetsAt)
	}

	if v.Cost != nil {
		b.WriteString(costStyle.Render(fmt.Sprintf("today $%.2f · month $%.2f",
			v.Cost.TodayTotal, v.Cost.MonthToDateTotal)) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// windowLabel names a window by its duration, falling back to a default.
func windowLabel(minutes int, fallback string) string {
	switch {
	case minutes <= 0:
		return fallback
	case minutes < 60:
		return fmt.Sprintf("%dm window", minutes)
	case minutes <= 1440:
		return fmt.Sprintf("%dh window", minutes/60)
	default:
		return fmt.Sprintf("%dd window", minutes/1440)
	}
}

// Bar renders a fixed-width block gauge for a 0.0-1.0 fraction.
// Overflow is capped at full.
func Bar(fraction float64, width int) string {
	if width < 1 {
		width = 1
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction*float64(width) + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// FormatUntil formats a duration as "Xh Ym", "Xm", or "now" once past.
func FormatUntil(d time.Duration) string {
	if d <= 0 {
		return "now"
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h >= 48 {
		return fmt.Sprintf("%dd %dh", h/24, h%24)
	}
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
