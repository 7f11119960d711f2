package ui

import (
	"fmt"
	"time"

	"github.com/kvaesitso/kvs/internal/api"
	"github.com/rivo/tview"
)

// Info displays the daemon status in the header.
type Info struct {
	*tview.TextView
	theme *Theme
}

// NewInfo creates a new status panel.
func NewInfo(theme *Theme) *Info {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &Info{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders st. Offline reports whether searches skip the network.
func (i *Info) Update(st *api.StatusResponse, offline bool) {
	i.Clear()
	if st == nil {
		return
	}
	fg := Tag(i.theme.FgColor)
	cc := Tag(i.theme.CounterColor)

	net := "online"
	if !st.Network || offline {
		net = "offline"
	}
	_, _ = fmt.Fprintf(i,
		"[%s::b]%s[-:-:-] [%s]%s[-] [%s]%d apps[-] [%s]%s[-] [%s]up %s[-]",
		fg, st.Profile,
		cc, st.State,
		fg, st.Counts["apps"],
		fg, net,
		fg, formatDuration(time.Duration(st.UptimeMS)*time.Millisecond),
	)
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
