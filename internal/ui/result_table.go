package ui

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/aidanlsb/qres/internal/resultset"
)

const (
	columnPadding = 2
	leftMargin    = 2
	minCellWidth  = 8
)

// NullText is how SQL NULL cells are displayed.
const NullText = "NULL"

// ResultTable renders a query result as a minimal table sized to the terminal.
type ResultTable struct {
	display *DisplayContext
	result  *resultset.Result
	maxRows int
}

// NewResultTable creates a table for res.
func NewResultTable(display *DisplayContext, res *resultset.Result) *ResultTable {
	return &ResultTable{display: display, result: res}
}

// SetMaxRows limits how many rows Render prints. Zero prints all rows.
func (t *ResultTable) SetMaxRows(n int) {
	t.maxRows = n
}

// Hidden returns how many rows Render leaves out.
func (t *ResultTable) Hidden() int {
	if t.maxRows <= 0 || len(t.result.Rows) <= t.maxRows {
		return 0
	}
	return len(t.result.Rows) - t.maxRows
}

// Render generates the table output as a string. A result without columns
// renders as "".
func (t *ResultTable) Render() string {
	cols := t.result.Columns
	if len(cols) == 0 {
		return ""
	}

	rows := t.result.Rows
	if hidden := t.Hidden(); hidden > 0 {
		rows = rows[:len(rows)-hidden]
	}

	cellWidth := t.cellWidth()
	headers := make([]string, len(cols))
	for i, c := range cols {
		typ := string(c.Type)
		if typ == "" {
			typ = "null"
		}
		headers[i] = TruncateWithEllipsis(c.FriendlyName, cellWidth) + "\n" + Muted.Render(typ)
	}

	tableRows := make([][]string, len(rows))
	for i, row := range rows {
		cells := make([]string, len(cols))
		for j, c := range cols {
			cells[j] = TruncateWithEllipsis(FormatCell(row[c.Name]), cellWidth)
		}
		tableRows[i] = cells
	}

	tbl := table.New().
		Border(lipgloss.Border{
			Top:    "─",
			Bottom: "─",
			Left:   "",
			Right:  "",
			Middle: "─",
		}).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(true).
		BorderRow(false).
		BorderColumn(false).
		BorderStyle(Muted).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle()
			if row == table.HeaderRow {
				style = AccentBold
			} else if row >= 0 && row < len(rows) && rows[row][cols[col].Name] == nil {
				style = Muted
			}
			if isNumeric(cols[col].Type) {
				style = style.Align(lipgloss.Right)
			}
			if col < len(cols)-1 {
				style = style.PaddingRight(columnPadding)
			}
			return style
		}).
		Rows(tableRows...)

	return tbl.Render()
}

// cellWidth splits the available terminal width evenly between columns.
func (t *ResultTable) cellWidth() int {
	n := len(t.result.Columns)
	available := t.display.TermWidth - leftMargin - (n-1)*columnPadding
	width := available / n
	if width < minCellWidth {
		width = minCellWidth
	}
	return width
}

func isNumeric(typ resultset.ColumnType) bool {
	return typ == resultset.TypeInteger || typ == resultset.TypeFloat
}

// FormatCell renders a result value for display.
func FormatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return NullText
	case string:
		return strings.ReplaceAll(val, "\n", " ")
	case []byte:
		return string(val)
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format(time.RFC3339)
	}
	return fmt.Sprint(v)
}

// TruncateWithEllipsis truncates a string to maxLen runes, adding an ellipsis
// if needed. It tries to break at word boundaries.
func TruncateWithEllipsis(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}

	truncated := string(runes[:maxLen-3])
	lastSpace := strings.LastIndex(truncated, " ")
	if lastSpace > len(truncated)/2 {
		truncated = truncated[:lastSpace]
	}
	return truncated + "..."
}
