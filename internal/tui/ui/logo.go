package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// Logo displays the compact title.
type Logo struct {
	*tview.TextView
}

// NewLogo creates a new logo component.
func NewLogo(theme *Theme) *Logo {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 0)
	_, _ = fmt.Fprintf(tv, "[%s::b]kvs[-:-:-] [%s]search[-]", Tag(theme.TitleColor), Tag(theme.DimColor))
	return &Logo{TextView: tv}
}
