package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var styles = NewPalette("#7D56F4", "#FF0000", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title     lipgloss.Style
	tab       lipgloss.Style
	activeTab lipgloss.Style
	err       lipgloss.Style
	warn      lipgloss.Style
	help      lipgloss.Style
}

// NewPalette builds the view styles from title, error, warning and help colors.
func NewPalette(t, e, w, h string) *Palette {
	return &Palette{
		title:     NewBold(t).MarginBottom(1),
		tab:       NewStyle(h).Padding(0, 1),
		activeTab: NewBold(t).Padding(0, 1).Underline(true),
		err:       NewBold(e),
		warn:      NewStyle(w),
		help:      NewEm(h),
	}
}

// NewStyle returns a style with foreground fg.
func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

// NewBold returns a bold style with foreground fg.
func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

// NewEm returns an italic style with foreground fg.
func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
