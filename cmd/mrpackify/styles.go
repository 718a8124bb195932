// SPDX-License-Identifier: MPL-2.0

package cmd

import "github.com/charmbracelet/lipgloss"

// Color palette shared by help text and the run summary.
const (
	// ColorPrimary is purple - used for titles.
	ColorPrimary = lipgloss.Color("#7C3AED")

	// ColorMuted is gray - used for subtitles and secondary details.
	ColorMuted = lipgloss.Color("#6B7280")

	// ColorSuccess is green - used for the success marker.
	ColorSuccess = lipgloss.Color("#10B981")

	// ColorWarning is amber - used for skipped archives.
	ColorWarning = lipgloss.Color("#F59E0B")

	// ColorHighlight is blue - used for instance names.
	ColorHighlight = lipgloss.Color("#3B82F6")
)

var (
	// TitleStyle is for primary headers.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	// SubtitleStyle is for secondary headers and descriptions.
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// SuccessStyle is for success indicators.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	// WarningStyle is for caution indicators.
	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// InstanceStyle is for instance names.
	InstanceStyle = lipgloss.NewStyle().
			Foreground(ColorHighlight)
)
