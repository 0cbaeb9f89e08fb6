package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/maauso/offervideo/internal/run"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	panelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// renderRun formats a finished run for the terminal.
func renderRun(r *run.Run) string {
	status := okStyle.Render(string(r.Status))
	if r.Status != run.StatusCompleted || r.Summary.Failed > 0 {
		status = errorStyle.Render(string(r.Status))
	}
	header := titleStyle.Render("offervideo "+r.ID) + "  " + status

	s := r.Summary
	rows := [][2]string{
		{"created", fmt.Sprint(s.Created)},
		{"existing", fmt.Sprint(s.Existing)},
		{"failed", fmt.Sprint(s.Failed)},
		{"missing image", fmt.Sprint(s.MissingImage)},
		{"filtered", fmt.Sprint(s.Filtered)},
	}
	if s.Published > 0 || s.PublishFailed > 0 {
		rows = append(rows,
			[2]string{"published", fmt.Sprint(s.Published)},
			[2]string{"publish failed", fmt.Sprint(s.PublishFailed)},
		)
	}
	rows = append(rows, [2]string{"duration", s.Duration.Round(time.Millisecond).String()})

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("%-15s", row[0]))+row[1])
	}
	body := strings.Join(lines, "\n")
	if r.Error != "" {
		body = errorStyle.Render(r.Error)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, panelStyle.Render(body))
}
