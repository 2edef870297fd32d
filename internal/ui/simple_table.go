package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// SimpleTable renders a borderless listing with a bold header row.
func SimpleTable(headers []string, rows [][]string) string {
	tbl := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		BorderColumn(false).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle()
			if row == table.HeaderRow {
				style = Bold
			}
			if col < len(headers)-1 {
				style = style.PaddingRight(columnPadding)
			}
			return style
		}).
		Rows(rows...)
	return tbl.Render()
}
