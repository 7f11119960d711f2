// Package tui is the terminal search surface for a running kvsd.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/kvaesitso/kvs/internal/api"
	"github.com/kvaesitso/kvs/internal/client"
	"github.com/kvaesitso/kvs/internal/search"
	"github.com/kvaesitso/kvs/internal/tui/keys"
	"github.com/kvaesitso/kvs/internal/tui/model"
	"github.com/kvaesitso/kvs/internal/tui/ui"
	"github.com/kvaesitso/kvs/internal/tui/views"
	"github.com/rivo/tview"
)

// Focus scopes used for key bindings.
const (
	scopeQuery   = "query"
	scopeResults = "results"
	scopeHelp    = "help"
)

// App is the main TUI application shell.
type App struct {
	app      *tview.Application
	root     *tview.Flex
	pages    *tview.Pages
	theme    *ui.Theme
	daemon   *client.Client
	registry *keys.Registry
	session  *model.Session
	flash    *ui.FlashModel

	info     *ui.Info
	menu     *ui.Menu
	flashBar *ui.FlashBar
	prompt   *ui.Prompt
	searchV  *views.SearchView
	helpV    *views.HelpView

	status   *api.StatusResponse
	labelKey string
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(c *client.Client) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:      tview.NewApplication(),
		pages:    tview.NewPages(),
		theme:    theme,
		daemon:   c,
		registry: keys.NewRegistry(),
		flash:    ui.NewFlashModel(),
		info:     ui.NewInfo(theme),
		menu:     ui.NewMenu(theme),
		flashBar: ui.NewFlashBar(theme),
		prompt:   ui.NewPrompt(theme),
		searchV:  views.NewSearchView(theme),
		helpV:    views.NewHelpView(theme),
		ctx:      ctx,
		cancel:   cancel,
	}

	open := func(ctx context.Context, req api.SearchRequest) (model.Stream, error) {
		s, err := c.Search(ctx, req)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	a.session = model.NewSession(open, search.DefaultFilters(), a.onUpdate, func(err error) {
		a.flash.Err(err)
		a.app.QueueUpdateDraw(a.renderFlash)
	})

	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()
	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyCtrlN, Hint: "^N", Description: "network",
		Handler: a.toggleNetwork,
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyCtrlR, Hint: "^R", Description: "refresh",
		Handler: a.session.Refresh,
	})

	a.registry.AddView(scopeResults, &keys.Action{
		Key: tcell.KeyRune, Rune: 'l', Hint: "l", Description: "rename",
		Handler: a.promptLabel,
	})
	a.registry.AddView(scopeResults, &keys.Action{
		Key: tcell.KeyRune, Rune: 'u', Hint: "u", Description: "reset",
		Handler: func() {
			if row, ok := a.searchV.Selected(); ok {
				a.setLabel(row.Key, "")
			}
		},
	})
	a.registry.AddView(scopeResults, &keys.Action{
		Key: tcell.KeyRune, Rune: 'y', Description: "key",
		Handler: func() {
			if row, ok := a.searchV.Selected(); ok {
				a.flash.Info(row.Key)
				a.renderFlash()
			}
		},
	})
	a.registry.AddView(scopeResults, &keys.Action{
		Key: tcell.KeyRune, Rune: '/', Description: "query",
		Handler: a.focusQuery,
	})
	a.registry.AddView(scopeResults, &keys.Action{
		Key: tcell.KeyRune, Rune: ':', Hint: ":", Description: "command",
		Handler: func() { a.showPrompt(ui.PromptCommand, "") },
	})
	a.registry.AddView(scopeResults, &keys.Action{
		Key: tcell.KeyRune, Rune: '?', Hint: "?", Description: "help",
		Handler: a.showHelp,
	})
	a.registry.AddView(scopeResults, &keys.Action{
		Key: tcell.KeyRune, Rune: 'q', Hint: "q", Description: "quit",
		Handler: a.Stop,
	})

	a.registry.AddView(scopeHelp, &keys.Action{
		Key: tcell.KeyRune, Rune: 'q', Hint: "q", Description: "back",
		Handler: a.hideHelp,
	})
}

func (a *App) setupCallbacks() {
	a.searchV.SetOnChange(a.session.Query)

	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.hidePrompt()
		switch mode {
		case ui.PromptLabel:
			a.setLabel(a.labelKey, text)
		case ui.PromptCommand:
			a.runCommand(ParseCommand(text))
		}
	})
	a.prompt.SetOnCancel(a.hidePrompt)
}

func (a *App) setupLayout() {
	header := tview.NewFlex().
		AddItem(ui.NewLogo(a.theme), 11, 0, false).
		AddItem(a.info, 0, 1, false).
		AddItem(a.menu, 0, 1, false)

	a.pages.AddPage(scopeQuery, a.searchV, true, true)
	a.pages.AddPage(scopeHelp, a.helpV, true, false)

	a.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 1, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.flashBar, 1, 0, false)

	a.app.SetRoot(a.root, true)
	a.app.SetFocus(a.searchV.Input())
	a.app.SetInputCapture(a.capture)
	a.renderMenu()
}

func (a *App) scope() string {
	if page, _ := a.pages.GetFrontPage(); page == scopeHelp {
		return scopeHelp
	}
	if a.app.GetFocus() == a.searchV.Results() {
		return scopeResults
	}
	return scopeQuery
}

func (a *App) capture(event *tcell.EventKey) *tcell.EventKey {
	if a.app.GetFocus() == a.prompt.InputField {
		return event
	}

	switch scope := a.scope(); scope {
	case scopeHelp:
		if event.Key() == tcell.KeyEscape {
			a.hideHelp()
			return nil
		}
	case scopeResults:
		if event.Key() == tcell.KeyEscape {
			a.focusQuery()
			return nil
		}
	case scopeQuery:
		switch event.Key() {
		case tcell.KeyDown, tcell.KeyTab, tcell.KeyEnter:
			a.focusResults()
			return nil
		case tcell.KeyRune:
			// Typed text belongs to the query.
			return event
		}
	}

	if a.registry.HandleEvent(a.scope(), event) {
		return nil
	}
	return event
}

func (a *App) onUpdate(query string, u *api.SearchUpdate) {
	rows := u.Snapshot.Rows()
	a.app.QueueUpdateDraw(func() {
		if query != a.searchV.Query() {
			return
		}
		a.searchV.Update(rows)
	})
}

func (a *App) focusQuery() {
	a.app.SetFocus(a.searchV.Input())
	a.renderMenu()
}

func (a *App) focusResults() {
	a.app.SetFocus(a.searchV.Results())
	a.renderMenu()
}

func (a *App) showHelp() {
	a.pages.SwitchToPage(scopeHelp)
	a.app.SetFocus(a.helpV)
	a.renderMenu()
}

func (a *App) hideHelp() {
	a.pages.SwitchToPage(scopeQuery)
	a.focusResults()
}

func (a *App) showPrompt(mode ui.PromptMode, text string) {
	a.prompt.Activate(mode, text)
	a.root.ResizeItem(a.prompt, 3, 0)
	a.app.SetFocus(a.prompt.InputField)
}

func (a *App) hidePrompt() {
	a.root.ResizeItem(a.prompt, 0, 0)
	a.focusResults()
}

func (a *App) promptLabel() {
	row, ok := a.searchV.Selected()
	if !ok {
		return
	}
	a.labelKey = row.Key
	a.showPrompt(ui.PromptLabel, row.Label)
}

// setLabel runs off the UI goroutine; live searches pick up the new label
// from the daemon.
func (a *App) setLabel(key, label string) {
	if key == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, 5*time.Second)
		defer cancel()
		if err := a.daemon.SetLabel(ctx, key, label); err != nil {
			a.flash.Err(fmt.Errorf("rename: %w", err))
		} else if label == "" {
			a.flash.Info("Name reset")
		} else {
			a.flash.Info("Renamed to " + label)
		}
		a.app.QueueUpdateDraw(a.renderFlash)
	}()
}

func (a *App) toggleNetwork() {
	f := a.session.Filters()
	f.AllowNetwork = !f.AllowNetwork
	a.session.SetFilters(f)
	if f.AllowNetwork {
		a.flash.Info("Network results on")
	} else {
		a.flash.Info("Network results off")
	}
	a.renderFlash()
	a.info.Update(a.status, !f.AllowNetwork)
}

func (a *App) runCommand(cmd Command) {
	switch cmd.Name {
	case "q", "quit":
		a.Stop()
	case "help", "h":
		a.showHelp()
	case "all":
		f := search.DefaultFilters()
		f.AllowNetwork = a.session.Filters().AllowNetwork
		a.session.SetFilters(f)
		a.flash.Info("Searching every category")
	case "only":
		f, err := search.ParseFilters(cmd.Fields())
		if err != nil {
			a.flash.Err(err)
			break
		}
		f.AllowNetwork = a.session.Filters().AllowNetwork
		a.session.SetFilters(f)
		a.flash.Info("Searching " + cmd.Args)
	case "hours":
		go a.evalHours(cmd.Args)
	case "import":
		go a.importCatalog()
	case "":
	default:
		a.flash.Warn("Unknown command: " + cmd.Name)
	}
	a.renderFlash()
}

func (a *App) evalHours(expr string) {
	ctx, cancel := context.WithTimeout(a.ctx, 5*time.Second)
	defer cancel()
	resp, err := a.daemon.OpeningHours(ctx, expr, time.Time{})
	switch {
	case err != nil:
		a.flash.Err(err)
	case resp.Schedule == nil:
		a.flash.Warn("No opening hours")
	case resp.OpenNow:
		a.flash.Info("Open now: " + resp.Normalized)
	default:
		a.flash.Info("Closed now: " + resp.Normalized)
	}
	a.app.QueueUpdateDraw(a.renderFlash)
}

func (a *App) importCatalog() {
	ctx, cancel := context.WithTimeout(a.ctx, 30*time.Second)
	defer cancel()
	resp, err := a.daemon.ImportCatalog(ctx)
	switch {
	case err != nil:
		a.flash.Err(err)
	case resp.Missing:
		a.flash.Warn("No catalog file")
	case resp.Unchanged:
		a.flash.Info("Catalog unchanged")
	default:
		a.flash.Info(fmt.Sprintf("Catalog imported in %dms", resp.DurationMS))
	}
	a.app.QueueUpdateDraw(a.renderFlash)
}

func (a *App) renderMenu() {
	hints := a.registry.Hints(a.scope())
	out := make([]ui.MenuHint, 0, len(hints))
	for _, h := range hints {
		out = append(out, ui.MenuHint{Key: h.Key, Description: h.Description})
	}
	a.menu.Update(out)
}

func (a *App) renderFlash() {
	a.flashBar.Update(a.flash.Current())
}

func (a *App) loadStatus() {
	ctx, cancel := context.WithTimeout(a.ctx, 2*time.Second)
	defer cancel()
	st, err := a.daemon.Status(ctx)
	if err != nil {
		if a.ctx.Err() == nil {
			a.flash.Err(fmt.Errorf("status: %w", err))
		}
		return
	}
	a.app.QueueUpdateDraw(func() {
		a.status = st
		a.info.Update(st, !a.session.Filters().AllowNetwork)
	})
}

// Run starts the TUI application and blocks until it exits.
func (a *App) Run() error {
	a.session.Query("")
	go a.loadStatus()
	a.startRefreshLoop()

	err := a.app.Run()
	a.cancel()
	a.session.Close()
	return err
}

func (a *App) startRefreshLoop() {
	ticker := time.NewTicker(time.Second)
	go func() {
		defer ticker.Stop()
		n := 0
		for {
			select {
			case <-ticker.C:
				n++
				if n%5 == 0 {
					a.loadStatus()
				}
				a.app.QueueUpdateDraw(a.renderFlash)
			case <-a.ctx.Done():
				return
			}
		}
	}()
}

// Stop shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
