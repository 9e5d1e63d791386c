package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/bassamadnan/mailagent/drafts"
	"github.com/bassamadnan/mailagent/pipeline"
	"github.com/bassamadnan/mailagent/prompts"
)

const (
	PageInbox    = "inbox"
	PagePrompts  = "prompts"
	PageDrafts   = "drafts"
	PageAgent    = "agent"
	PageReply    = "reply"
	PageNewDraft = "newDraft"
	PageConfirm  = "confirm"
)

const notConfiguredStatus = "[red]LLM not configured. Set GEMINI_API_KEY or OPENAI_API_KEY.[-]"

type App struct {
	*tview.Application
	pages     *tview.Pages
	statusBar *tview.TextView

	inboxView   *InboxView
	promptsView *PromptsView
	draftsView  *DraftsView
	agentView   *AgentView

	ctx         context.Context
	proc        *pipeline.Processor
	promptStore *prompts.Store
	draftStore  *drafts.Store
	llmReady    bool
	log         zerolog.Logger

	flight  singleflight.Group
	current string
}

func NewApp(ctx context.Context, proc *pipeline.Processor, ps *prompts.Store, ds *drafts.Store, llmReady bool, log zerolog.Logger) *App {
	a := &App{
		Application: tview.NewApplication(),
		ctx:         ctx,
		proc:        proc,
		promptStore: ps,
		draftStore:  ds,
		llmReady:    llmReady,
		log:         log.With().Str("component", "tui").Logger(),
		current:     PageInbox,
	}

	a.inboxView = NewInboxView(a)
	a.promptsView = NewPromptsView(a)
	a.draftsView = NewDraftsView(a)
	a.agentView = NewAgentView(a)

	a.statusBar = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	a.statusBar.SetBackgroundColor(tcell.ColorDefault)

	a.pages = tview.NewPages().
		AddPage(PageInbox, a.inboxView, true, true).
		AddPage(PagePrompts, a.promptsView, true, false).
		AddPage(PageDrafts, a.draftsView, true, false).
		AddPage(PageAgent, a.agentView, true, false)

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)
	layout.SetBackgroundColor(tcell.ColorDefault)

	a.Application.SetRoot(layout, true).EnableMouse(true)
	a.setGlobalKeybindings()
	return a
}

func (a *App) Run() error {
	a.inboxView.refresh()
	a.promptsView.refresh()
	a.draftsView.refresh()
	a.setStandardStatus()
	if !a.llmReady {
		a.flash(notConfiguredStatus)
	}
	a.Application.SetFocus(a.inboxView.list)
	return a.Application.Run()
}

func (a *App) setGlobalKeybindings() {
	a.Application.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyCtrlC {
			a.Stop()
			return nil
		}

		front, _ := a.pages.GetFrontPage()
		if isOverlay(front) {
			if event.Key() == tcell.KeyEscape {
				a.closeOverlay(front)
				return nil
			}
			return event
		}

		switch event.Key() {
		case tcell.KeyF1:
			a.showPage(PageInbox)
			return nil
		case tcell.KeyF2:
			a.showPage(PagePrompts)
			return nil
		case tcell.KeyF3:
			a.showPage(PageDrafts)
			return nil
		case tcell.KeyF4:
			a.showPage(PageAgent)
			return nil
		}

		if a.editing() {
			return event
		}
		switch event.Rune() {
		case 'q', 'Q':
			a.Stop()
			return nil
		case '1':
			a.showPage(PageInbox)
			return nil
		case '2':
			a.showPage(PagePrompts)
			return nil
		case '3':
			a.showPage(PageDrafts)
			return nil
		case '4':
			a.showPage(PageAgent)
			return nil
		}
		return event
	})
}

// editing reports whether keystrokes belong to a text field.
func (a *App) editing() bool {
	switch a.Application.GetFocus().(type) {
	case *tview.InputField, *tview.TextArea, *tview.DropDown:
		return true
	}
	return false
}

func isOverlay(page string) bool {
	return page == PageReply || page == PageNewDraft || page == PageConfirm
}

func (a *App) showPage(name string) {
	a.current = name
	a.pages.SwitchToPage(name)
	switch name {
	case PageInbox:
		a.inboxView.refresh()
		a.Application.SetFocus(a.inboxView.list)
	case PagePrompts:
		a.Application.SetFocus(a.promptsView.list)
	case PageDrafts:
		a.draftsView.refresh()
		a.Application.SetFocus(a.draftsView.list)
	case PageAgent:
		a.Application.SetFocus(a.agentView.input)
	}
	a.setStandardStatus()
}

// showOverlay puts p centered over the current page.
func (a *App) showOverlay(name string, p tview.Primitive, width, height int) {
	centered := tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(p, height, 1, true).
			AddItem(nil, 0, 1, false), width, 1, true).
		AddItem(nil, 0, 1, false)
	a.pages.AddPage(name, centered, true, true)
	a.Application.SetFocus(p)
}

func (a *App) closeOverlay(name string) {
	a.pages.RemovePage(name)
	a.showPage(a.current)
}

// confirm asks a yes/no question and calls onYes if confirmed.
func (a *App) confirm(question string, onYes func()) {
	modal := tview.NewModal().
		SetText(question).
		AddButtons([]string{"Yes", "No"}).
		SetDoneFunc(func(_ int, label string) {
			a.closeOverlay(PageConfirm)
			if label == "Yes" {
				onYes()
			}
		})
	a.pages.AddPage(PageConfirm, modal, true, true)
	a.Application.SetFocus(modal)
}

// background runs work off the UI goroutine and applies its result on it.
func (a *App) background(label string, work func() func()) {
	a.setStatus(fmt.Sprintf(" [yellow]%s...[-]", label))
	go func() {
		apply := work()
		a.QueueUpdateDraw(apply)
	}()
}

// requireLLM flashes the not-configured warning and reports false when no
// model is available.
func (a *App) requireLLM() bool {
	if !a.llmReady {
		a.flash(notConfiguredStatus)
	}
	return a.llmReady
}

func (a *App) setStatus(text string) {
	a.statusBar.SetText(text)
}

// flash shows a temporary status message and restores the standard status
// after a few seconds unless something else replaced it.
func (a *App) flash(text string) {
	msg := " " + text
	a.setStatus(msg)
	time.AfterFunc(4*time.Second, func() {
		a.QueueUpdateDraw(func() {
			if a.statusBar.GetText(false) == msg {
				a.setStandardStatus()
			}
		})
	})
}

func (a *App) setStandardStatus() {
	hints := map[string]string{
		PageInbox:   fmt.Sprintf("[::b]f[::-]:Filter(%s) [::b]/[::-]:Search [::b]p[::-]:Process all [::b]e[::-]:Process [::b]s[::-]:Summarize [::b]r[::-]:Reply", a.inboxView.filter),
		PagePrompts: "[::b]Enter[::-]:Edit [::b]Ctrl+S[::-]:Save [::b]Esc[::-]:Back",
		PageDrafts:  "[::b]n[::-]:New [::b]Enter[::-]:Edit [::b]d[::-]:Delete [::b]Esc[::-]:Back",
		PageAgent:   "[::b]Enter[::-]:Ask [::b]Esc[::-]:Leave input",
	}
	pages := []string{"1:Inbox", "2:Prompts", "3:Drafts", "4:Agent"}
	for i, p := range []string{PageInbox, PagePrompts, PageDrafts, PageAgent} {
		if p == a.current {
			pages[i] = "[::r]" + pages[i] + "[::-]"
		}
	}
	a.setStatus(fmt.Sprintf(" %s | %s | [::b]q[::-]:Quit", strings.Join(pages, " "), hints[a.current]))
}

// processInbox runs the pipeline over every pending email. Repeated triggers
// while a run is in flight share its result.
func (a *App) processInbox() {
	if !a.requireLLM() {
		return
	}
	a.background("Processing inbox", func() func() {
		v, _, _ := a.flight.Do("process-inbox", func() (any, error) {
			return a.proc.ProcessInbox(a.ctx), nil
		})
		n := v.(int)
		return func() {
			a.inboxView.refresh()
			if !a.proc.ModelAvailable() {
				a.flash(fmt.Sprintf("[red]Model unavailable, stopped after %d emails[-]", n))
				return
			}
			a.flash(fmt.Sprintf("[green]Processed %d emails[-]", n))
		}
	})
}

func (a *App) processEmail(id string) {
	if !a.requireLLM() {
		return
	}
	a.background("Processing email", func() func() {
		v, _, _ := a.flight.Do("process:"+id, func() (any, error) {
			return a.proc.ProcessEmail(a.ctx, id), nil
		})
		ok := v.(bool)
		return func() {
			a.inboxView.refresh()
			switch {
			case ok:
				a.flash("[green]Email processed[-]")
			case !a.proc.ModelAvailable():
				a.flash("[red]Model unavailable, try again shortly[-]")
			default:
				a.flash("[red]Email no longer in inbox[-]")
			}
		}
	})
}

func (a *App) summarize(id string) {
	if !a.requireLLM() {
		return
	}
	a.background("Summarizing", func() func() {
		v, err, _ := a.flight.Do("summarize:"+id, func() (any, error) {
			return a.proc.Summarize(a.ctx, id)
		})
		return func() {
			if err != nil {
				a.log.Warn().Err(err).Str("email_id", id).Msg("summarize failed")
				a.flash(fmt.Sprintf("[red]%s[-]", tview.Escape(err.Error())))
				return
			}
			a.inboxView.setSummary(id, v.(string))
			a.setStandardStatus()
		}
	})
}
