package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/valter-silva-au/tasktimer/pkg/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230"))
	timerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	statusPending    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	statusInProgress = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	statusPaused     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	statusCorrection = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	statusCompleted  = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	statusQC         = lipgloss.NewStyle().Foreground(lipgloss.Color("141"))
	statusFinalized  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	noteWarning = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	noteSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	noteInfo    = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))

	severityHigh   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	severityMedium = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	severityLow    = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))
)

func styleForStatus(status models.TaskStatus) lipgloss.Style {
	switch status {
	case models.StatusPending:
		return statusPending
	case models.StatusInProgress:
		return statusInProgress
	case models.StatusPaused:
		return statusPaused
	case models.StatusCorrection:
		return statusCorrection
	case models.StatusCompleted:
		return statusCompleted
	case models.StatusQC:
		return statusQC
	case models.StatusFinalized:
		return statusFinalized
	default:
		return lipgloss.NewStyle()
	}
}

// statusBadge renders status padded to a fixed width so tables line up.
func statusBadge(status models.TaskStatus) string {
	return styleForStatus(status).Render(padRight(string(status), 11))
}

func styleForNotification(t models.NotificationType) lipgloss.Style {
	switch t {
	case models.NotificationWarning:
		return noteWarning
	case models.NotificationSuccess:
		return noteSuccess
	default:
		return noteInfo
	}
}

func styleForSeverity(severity string) lipgloss.Style {
	switch strings.ToLower(severity) {
	case "high":
		return severityHigh
	case "medium":
		return severityMedium
	case "low":
		return severityLow
	default:
		return lipgloss.NewStyle()
	}
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
