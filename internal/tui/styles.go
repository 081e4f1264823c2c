// Package tui renders consultations in the terminal: a live Bubbletea view
// for interactive sessions and line output for pipes and CI.
package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorBrand   = lipgloss.Color("#0E7490")
	colorSpeaker = lipgloss.Color("#F59E0B")
	colorAgree   = lipgloss.Color("#10B981")
	colorSplit   = lipgloss.Color("#F59E0B")
	colorDissent = lipgloss.Color("#EF4444")
	colorInfo    = lipgloss.Color("#3B82F6")
	colorText    = lipgloss.Color("#E5E7EB")
	colorMuted   = lipgloss.Color("#9CA3AF")
	colorBorder  = lipgloss.Color("#374151")
	colorHeader  = lipgloss.Color("#1F2937")
	colorWhite   = lipgloss.Color("#FFFFFF")

	colorAssess  = lipgloss.Color("#8B5CF6")
	colorDiscuss = lipgloss.Color("#06B6D4")
	colorDecide  = lipgloss.Color("#10B981")
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBrand).
			Background(colorHeader).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			MarginTop(1)

	// BoxStyle frames the discussion transcript.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	AdvisorStyle = lipgloss.NewStyle().
			Foreground(colorText).
			PaddingLeft(2)

	PendingStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	RunningStyle   = lipgloss.NewStyle().Foreground(colorDiscuss).Bold(true)
	CompletedStyle = lipgloss.NewStyle().Foreground(colorAgree)
	FailedStyle    = lipgloss.NewStyle().Foreground(colorDissent).Bold(true)
	SubtleStyle    = lipgloss.NewStyle().Foreground(colorMuted)

	SpeakerStyle  = lipgloss.NewStyle().Foreground(colorSpeaker).Bold(true)
	FeedbackStyle = lipgloss.NewStyle().Foreground(colorInfo).Italic(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(colorDissent).
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDissent).
			Padding(1, 2)
)

func badge(bg lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Background(bg).Foreground(colorWhite).Padding(0, 1).Bold(true)
}

var (
	assessBadge  = badge(colorAssess)
	discussBadge = badge(colorDiscuss)
	decideBadge  = badge(colorDecide)
)

// StageBadge returns the badge style for a watch stage.
func StageBadge(stage Stage) lipgloss.Style {
	switch stage {
	case StageAssessing:
		return assessBadge
	case StageDiscussing:
		return discussBadge
	case StageDeciding, StageDone:
		return decideBadge
	case StageFailed:
		return FailedStyle
	default:
		return PendingStyle
	}
}

// AgreementStyle colors an agreement rate: green at the consensus
// threshold, amber for a plain majority, red below.
func AgreementStyle(rate float64) lipgloss.Style {
	switch {
	case rate >= 0.8:
		return lipgloss.NewStyle().Foreground(colorAgree)
	case rate > 0.5:
		return lipgloss.NewStyle().Foreground(colorSplit)
	default:
		return lipgloss.NewStyle().Foreground(colorDissent)
	}
}
