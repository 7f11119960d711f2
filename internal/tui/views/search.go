package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/kvaesitso/kvs/internal/search"
	"github.com/kvaesitso/kvs/internal/tui/ui"
	"github.com/rivo/tview"
)

// line is one table row: a category header or a result.
type line struct {
	header search.Category
	row    *search.Row
}

// layout groups rows under a header per category.
func layout(rows []search.Row) []line {
	var lines []line
	var last search.Category
	for i := range rows {
		if rows[i].Category != last {
			last = rows[i].Category
			lines = append(lines, line{header: last})
		}
		lines = append(lines, line{row: &rows[i]})
	}
	return lines
}

// SearchView is the query input over the grouped result table.
type SearchView struct {
	*tview.Flex
	theme    *ui.Theme
	input    *tview.InputField
	results  *tview.Table
	lines    []line
	onChange func(query string)
}

// NewSearchView creates a new search view.
func NewSearchView(theme *ui.Theme) *SearchView {
	input := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0).
		SetPlaceholder("type to search")
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.MenuKeyColor)
	input.SetPlaceholderTextColor(theme.DimColor)

	results := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false)
	results.SetBorder(true)
	results.SetBorderColor(theme.BorderColor)
	results.SetBackgroundColor(theme.BgColor)
	results.SetTitle(" Results ")
	results.SetTitleColor(theme.TitleColor)
	results.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(input, 1, 0, true).
		AddItem(results, 0, 1, false)

	sv := &SearchView{
		Flex:    flex,
		theme:   theme,
		input:   input,
		results: results,
	}
	input.SetChangedFunc(func(text string) {
		if sv.onChange != nil {
			sv.onChange(text)
		}
	})
	return sv
}

// SetOnChange sets the callback run on every edit of the query.
func (sv *SearchView) SetOnChange(fn func(query string)) {
	sv.onChange = fn
}

// Query returns the current query text.
func (sv *SearchView) Query() string {
	return sv.input.GetText()
}

// Update replaces the results, keeping the selection on the same key when it
// is still present.
func (sv *SearchView) Update(rows []search.Row) {
	prev, hadPrev := sv.Selected()

	sv.lines = layout(rows)
	sv.results.Clear()

	selected := -1
	for i, l := range sv.lines {
		if l.row == nil {
			sv.results.SetCell(i, 0, tview.NewTableCell(" "+string(l.header)).
				SetSelectable(false).
				SetTextColor(sv.theme.CategoryColor).
				SetAttributes(tcell.AttrBold))
			sv.results.SetCell(i, 1, tview.NewTableCell("").SetSelectable(false))
			continue
		}
		if selected < 0 || (hadPrev && l.row.Key == prev.Key) {
			selected = i
		}
		sv.results.SetCell(i, 0, tview.NewTableCell("   "+tview.Escape(cellText(l.row.Label))).
			SetMaxWidth(40).
			SetTextColor(sv.theme.FgColor))
		sv.results.SetCell(i, 1, tview.NewTableCell(" "+tview.Escape(cellText(l.row.Detail))).
			SetExpansion(1).
			SetTextColor(sv.theme.DimColor))
	}
	if selected >= 0 {
		sv.results.Select(selected, 0)
	}
	sv.results.SetTitle(titleFor(len(rows)))
}

func titleFor(n int) string {
	switch n {
	case 0:
		return " Results "
	case 1:
		return " 1 result "
	}
	return fmt.Sprintf(" %d results ", n)
}

// Selected returns the selected result.
func (sv *SearchView) Selected() (search.Row, bool) {
	row, _ := sv.results.GetSelection()
	if row >= 0 && row < len(sv.lines) && sv.lines[row].row != nil {
		return *sv.lines[row].row, true
	}
	return search.Row{}, false
}

// Input returns the search input field.
func (sv *SearchView) Input() *tview.InputField {
	return sv.input
}

// Results returns the results table.
func (sv *SearchView) Results() *tview.Table {
	return sv.results
}
