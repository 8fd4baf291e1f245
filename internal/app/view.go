package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/nateberkopec/tasknotifier/internal/clock"
	"github.com/nateberkopec/tasknotifier/internal/reminder"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213"))

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("247"))

	rowStyle = lipgloss.NewStyle()

	selectedRowStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("57")).
				Foreground(lipgloss.Color("230"))

	statusNeutralStyle = lipgloss.NewStyle()
	statusErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	statusSuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("120"))

	emptyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	formFrameStyle = lipgloss.NewStyle().Padding(1, 2)

	tableGap = " │ "
)

var tableColumns = []struct {
	Title  string
	Weight float64
	Min    int
}{
	{"", 0.04, 2},
	{"Title", 0.22, 10},
	{"Message", 0.38, 12},
	{"Time", 0.08, 5},
	{"Next", 0.18, 8},
	{"Image", 0.10, 5},
}

func renderView(m *Model) string {
	if m.width == 0 || m.height == 0 {
		return "Loading…"
	}

	if m.mode != modeList && m.form != nil {
		return renderForm(m)
	}

	var out []string
	out = append(out, renderHeader(m))
	out = append(out, renderHelpText(m))
	out = append(out, renderRecordsTable(m))
	out = append(out, renderStatusLine(m))

	return strings.Join(out, "\n")
}

func renderHeader(m *Model) string {
	count := m.service.Catalog().Len()
	noun := "notifications"
	if count == 1 {
		noun = "notification"
	}
	text := fmt.Sprintf("tasknotifier • %d %s • now %s • bell: %s", count, noun, clock.Format(m.now()), bellEmoji(m.bellEnabled))
	return titleStyle.Width(m.width).Render(pad(text, m.width))
}

func renderForm(m *Model) string {
	heading := "New notification"
	switch {
	case m.mode == modeConfirmDelete:
		heading = "Delete notification"
	case m.editID != "":
		heading = "Edit notification"
	}
	content := titleStyle.Render(heading) + "\n\n" + m.form.View()
	return formFrameStyle.Render(content)
}

func renderRecordsTable(m *Model) string {
	records := m.service.Records()
	widths := calculateColumnWidths(m.width)
	now := m.now()

	builder := strings.Builder{}
	builder.WriteString(renderRow(tableHeaders(), widths, headerStyle))

	linesUsed := 1
	if len(records) == 0 {
		builder.WriteString("\n")
		builder.WriteString(emptyStyle.Render(pad("No notifications yet. Press n to add one.", m.width)))
		linesUsed++
	}

	start := m.scrollOffset
	end := min(start+m.dataRows(), len(records))
	for idx := start; idx < end; idx++ {
		builder.WriteString("\n")
		rowStr := renderRow(m.tableRowData(records[idx], now), widths, rowStyle)
		if idx == m.selectedIndex {
			rowStr = selectedRowStyle.Width(m.width).Render(rowStr)
		}
		builder.WriteString(rowStr)
		linesUsed++
	}

	for linesUsed < m.listArea.height {
		builder.WriteString("\n")
		builder.WriteString(strings.Repeat(" ", max(0, m.width)))
		linesUsed++
	}

	return builder.String()
}

func renderHelpText(m *Model) string {
	return m.help.View(m.keys)
}

func renderStatusLine(m *Model) string {
	msg := m.status.text

	style := statusNeutralStyle
	switch m.status.kind {
	case statusError:
		style = statusErrorStyle
	case statusSuccess:
		style = statusSuccessStyle
	}

	return style.Width(m.width).Render(pad(truncate(msg, m.width), m.width))
}

func tableHeaders() []string {
	titles := make([]string, len(tableColumns))
	for i, c := range tableColumns {
		titles[i] = c.Title
	}
	return titles
}

func (m *Model) tableRowData(r reminder.Record, now time.Time) []string {
	image := ""
	if r.HasImage() {
		image = "yes"
	}
	return []string{
		m.formatStatus(r, now),
		r.Title,
		r.Message,
		r.Time,
		formatNext(r.Time, now),
		image,
	}
}

// formatStatus shows the outcome of today's most recent delivery.
func (m *Model) formatStatus(r reminder.Record, now time.Time) string {
	ev, ok := m.lastEvents[r.ID]
	if !ok || !sameDay(ev.At, now) {
		return "⏳"
	}
	if ev.Err != nil {
		return "❌"
	}
	return "✅"
}

func formatNext(raw string, now time.Time) string {
	d, err := clock.Until(raw, now)
	if err != nil {
		return "?"
	}
	return humanizeIn(d)
}

func humanizeIn(d time.Duration) string {
	if d < time.Minute {
		return "in <1m"
	}
	// Round up so 09:00 seen at 08:58:30 reads "in 2m".
	minutes := int((d + time.Minute - 1) / time.Minute)
	if minutes < 60 {
		return fmt.Sprintf("in %dm", minutes)
	}
	return fmt.Sprintf("in %dh%02dm", minutes/60, minutes%60)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func renderRow(cells []string, widths []int, style lipgloss.Style) string {
	var parts []string
	visibleCols := 0
	for i, cell := range cells {
		if widths[i] > 0 {
			cell = truncate(cell, widths[i])
			parts = append(parts, lipgloss.NewStyle().Width(widths[i]).Render(cell))
			visibleCols++
		}
	}
	row := strings.Join(parts, tableGap)
	rowWidth := lipgloss.Width(row)
	target := 0
	for _, w := range widths {
		if w > 0 {
			target += w
		}
	}
	if visibleCols > 0 {
		target += (visibleCols - 1) * lipgloss.Width(tableGap)
	}
	if rowWidth < target {
		row += strings.Repeat(" ", target-rowWidth)
	}
	return style.Render(row)
}

// calculateColumnWidths fits as many columns as the terminal allows,
// dropping columns from the right first.
func calculateColumnWidths(total int) []int {
	if total <= 0 {
		total = 80
	}

	widths := make([]int, len(tableColumns))
	gapWidth := lipgloss.Width(tableGap)

	for numCols := len(tableColumns); numCols >= 1; numCols-- {
		available := total - (numCols-1)*gapWidth
		if available < numCols {
			continue
		}

		minRequired := 0
		totalWeight := 0.0
		for i := 0; i < numCols; i++ {
			minRequired += tableColumns[i].Min
			totalWeight += tableColumns[i].Weight
		}
		if available < minRequired {
			continue
		}

		sum := 0
		for i := 0; i < numCols; i++ {
			col := tableColumns[i]
			width := int(float64(available) * col.Weight / totalWeight)
			if width < col.Min {
				width = col.Min
			}
			widths[i] = width
			sum += width
		}
		if diff := available - sum; diff > 0 {
			widths[numCols-1] += diff
		}
		for i := numCols; i < len(tableColumns); i++ {
			widths[i] = 0
		}
		return widths
	}

	widths[0] = max(1, total)
	for i := 1; i < len(widths); i++ {
		widths[i] = 0
	}
	return widths
}

func truncate(text string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(text) <= width {
		return text
	}
	if width <= 1 {
		return lipgloss.NewStyle().MaxWidth(1).Render(text)
	}
	trimmed := lipgloss.NewStyle().MaxWidth(width - 1).Render(text)
	return trimmed + "…"
}

func pad(text string, width int) string {
	if width <= 0 {
		return text
	}
	return lipgloss.NewStyle().Width(width).Render(text)
}

func bellEmoji(enabled bool) string {
	if enabled {
		return "🔔"
	}
	return "🔕"
}
