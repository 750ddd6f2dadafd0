package ui

import (
	"image/color"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/fang"
)

// Palette shared by every style, the help screen and the banner.
var (
	ColorAccent    = lipgloss.Color("#7C3AED") // Purple
	ColorSecondary = lipgloss.Color("#06B6D4") // Cyan
	ColorSuccess   = lipgloss.Color("#10B981") // Green
	ColorWarning   = lipgloss.Color("#F59E0B") // Amber
	ColorError     = lipgloss.Color("#EF4444") // Red
	ColorMuted     = lipgloss.Color("#6B7280") // Gray

	ColorText    = lipgloss.Color("#F9FAFB")
	ColorTextDim = lipgloss.Color("#9CA3AF")
)

// styleWrapper wraps a lipgloss style
type styleWrapper struct {
	style lipgloss.Style
}

// Render renders the string with the style
func (s styleWrapper) Render(str string) string {
	return s.style.Render(str)
}

// Bold returns a new style with bold enabled
func (s styleWrapper) Bold(v bool) styleWrapper {
	return styleWrapper{s.style.Bold(v)}
}

func fg(c color.Color) styleWrapper {
	return styleWrapper{lipgloss.NewStyle().Foreground(c)}
}

// Text styles.
var (
	Dim       = fg(ColorTextDim)
	Muted     = fg(ColorMuted)
	Success   = fg(ColorSuccess)
	Warning   = fg(ColorWarning)
	Error     = fg(ColorError)
	Secondary = fg(ColorSecondary)

	Title         = styleWrapper{lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)}
	SectionHeader = styleWrapper{lipgloss.NewStyle().Foreground(ColorSecondary).Bold(true)}
)

// Task and step states.
var (
	StepPending  = fg(ColorMuted)
	StepRunning  = fg(ColorSecondary)
	StepComplete = fg(ColorSuccess)
	StepFailed   = fg(ColorError)
	StepSkipped  = fg(ColorWarning)
)

// GetCheckMark returns a styled check mark
func GetCheckMark() string { return Success.Render("✓") }

// GetCrossMark returns a styled cross mark
func GetCrossMark() string { return Error.Render("✗") }

// GetWarnMark returns a styled warning mark
func GetWarnMark() string { return Warning.Render("⚠") }

// boxWrapper renders a bordered panel.
type boxWrapper struct {
	style lipgloss.Style
}

func (b boxWrapper) Render(str string) string {
	return b.style.Render(str)
}

func box(border color.Color) boxWrapper {
	return boxWrapper{lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)}
}

var (
	SuccessBox = box(ColorSuccess)
	ErrorBox   = box(ColorError)
)

// FormatKeyValue renders "key: value" with a dimmed key.
func FormatKeyValue(key, value string) string {
	return Dim.Render(key+": ") + value
}

// FormatStatus prefixes message with the icon of status: success, error or
// warning. Other statuses get no icon.
func FormatStatus(status, message string) string {
	switch status {
	case "success":
		return GetCheckMark() + " " + message
	case "error":
		return GetCrossMark() + " " + message
	case "warning":
		return GetWarnMark() + " " + message
	default:
		return message
	}
}

// FangColorScheme returns a Fang color scheme based on the application's color palette
func FangColorScheme(c lipgloss.LightDarkFunc) fang.ColorScheme {
	return fang.ColorScheme{
		Base:           ColorText,
		Title:          ColorAccent,
		Description:    ColorTextDim,
		Codeblock:      c(lipgloss.Color("#1F2937"), lipgloss.Color("#2F2E36")),
		Program:        ColorSecondary,
		DimmedArgument: ColorMuted,
		Comment:        ColorTextDim,
		Flag:           ColorSuccess,
		FlagDefault:    ColorTextDim,
		Command:        ColorAccent,
		QuotedString:   ColorSecondary,
		Argument:       ColorText,
		Help:           ColorTextDim,
		Dash:           ColorMuted,
		ErrorHeader:    [2]color.Color{ColorText, ColorError},
		ErrorDetails:   ColorError,
	}
}

// BannerASCII is the ASCII art banner for the application
const BannerASCII = `
 ____                        ____
|  _ \ _____      _____ _ __/ ___| ___ _ __   ___  _ __ ___   ___
| |_) / _ \ \ /\ / / _ \ '__| |  _ / _ \ '_ \ / _ \| '_ ` + "`" + ` _ \ / _ \
|  __/ (_) \ V  V /  __/ |  | |_| |  __/ | | | (_) | | | | | |  __/
|_|   \___/ \_/\_/ \___|_|   \____|\___|_| |_|\___/|_| |_| |_|\___|
`

// RenderBanner renders the banner in the secondary color.
func RenderBanner() string {
	return Secondary.Render(BannerASCII)
}
