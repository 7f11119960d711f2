package views

import (
	"fmt"

	"github.com/kvaesitso/kvs/internal/tui/ui"
	"github.com/rivo/tview"
)

// HelpView displays the key binding reference.
type HelpView struct {
	*tview.TextView
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	kc := ui.Tag(theme.MenuKeyColor)
	_, _ = fmt.Fprintf(tv, `
  [::b]Search[-:-:-]

  [%[1]s]Down/Tab[-:-:-]  Move to results     [%[1]s]Ctrl-N[-:-:-]  Toggle network
  [%[1]s]Ctrl-R[-:-:-]    Search again        [%[1]s]Ctrl-C[-:-:-]  Quit

  [::b]Results[-:-:-]

  [%[1]s]l[-:-:-]         Rename result       [%[1]s]u[-:-:-]       Reset name
  [%[1]s]y[-:-:-]         Show result key     [%[1]s]/[-:-:-]       Back to query
  [%[1]s]:[-:-:-]         Command             [%[1]s]?[-:-:-]       Help
  [%[1]s]q[-:-:-]         Quit

  [::b]Commands[-:-:-]

  [%[1]s]:only <categories>[-:-:-]   Search only these (apps,contacts,files,...)
  [%[1]s]:all[-:-:-]                 Search every category
  [%[1]s]:hours <expression>[-:-:-]  Evaluate an opening_hours expression
  [%[1]s]:import[-:-:-]              Re-import the catalog
  [%[1]s]:quit[-:-:-] / [%[1]s]:q[-:-:-]          Quit
`, kc)

	return &HelpView{TextView: tv}
}
