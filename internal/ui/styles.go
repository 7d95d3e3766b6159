package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette.
var (
	ColorSuccess   = lipgloss.Color("#00D26A") // green: success, payouts
	ColorWarning   = lipgloss.Color("#FFB800") // yellow: pending, warnings
	ColorError     = lipgloss.Color("#FF4444") // red: errors, reverts
	ColorAddress   = lipgloss.Color("#00B4D8") // cyan: addresses
	ColorValue     = lipgloss.Color("#FFFFFF") // white bold: amounts
	ColorMeta      = lipgloss.Color("#555555") // dim gray: metadata
	ColorBorder    = lipgloss.Color("#1E3A5F") // dark blue: UI chrome
	ColorWater     = lipgloss.Color("#4CC9F0") // light blue: headings
	ColorHighlight = lipgloss.Color("#F15BB5") // pink: selected rows
)

// Base styles.
var (
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	StyleError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StyleAddress = lipgloss.NewStyle().Foreground(ColorAddress)
	StyleValue   = lipgloss.NewStyle().Foreground(ColorValue).Bold(true)
	StyleMeta    = lipgloss.NewStyle().Foreground(ColorMeta)
	StyleInfo    = lipgloss.NewStyle().Foreground(ColorWater)

	StyleBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	StyleSelected = lipgloss.NewStyle().
			Background(ColorHighlight).
			Foreground(lipgloss.Color("#000000")).
			Bold(true)

	StyleTitle = lipgloss.NewStyle().
			Foreground(ColorWater).
			Bold(true).
			MarginBottom(1)

	StyleDim = lipgloss.NewStyle().Foreground(ColorMeta)
)

// Banner returns the h2o banner.
func Banner(version string) string {
	art := `
  ██╗  ██╗██████╗  ██████╗
  ██║  ██║╚════██╗██╔═══██╗
  ███████║ █████╔╝██║   ██║
  ██╔══██║██╔═══╝ ██║   ██║
  ██║  ██║███████╗╚██████╔╝
  ╚═╝  ╚═╝╚══════╝ ╚═════╝`

	tagline := StyleMeta.Render("  Hydro token toolkit  ·  " + version)
	return StyleInfo.Bold(true).Render(art) + "\n" + tagline + "\n"
}

func Success(msg string) string { return StyleSuccess.Render("✓ " + msg) }
func Warn(msg string) string    { return StyleWarning.Render("⚠ " + msg) }
func Err(msg string) string     { return StyleError.Render("✗ " + msg) }
func Info(msg string) string    { return StyleInfo.Render("ℹ " + msg) }
func Addr(a string) string      { return StyleAddress.Render(a) }
func Val(v string) string       { return StyleValue.Render(v) }
func Meta(m string) string      { return StyleMeta.Render(m) }

// Amount renders a formatted amount followed by its symbol.
func Amount(v, symbol string) string {
	return StyleValue.Render(v) + " " + StyleDim.Render(symbol)
}

// TruncateAddr shortens an address for display: 0x1234…5678.
func TruncateAddr(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

// padR pads s to visible width n (ANSI-safe using lipgloss.Width).
func padR(s string, n int) string {
	w := lipgloss.Width(s)
	if w >= n {
		return s
	}
	return s + strings.Repeat(" ", n-w)
}
