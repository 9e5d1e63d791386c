package tui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/bassamadnan/mailagent/inbox"
	"github.com/bassamadnan/mailagent/pipeline"
)

type InboxView struct {
	*tview.Flex
	app       *App
	search    *tview.InputField
	list      *tview.List
	preview   *tview.TextView
	filter    string
	query     string
	visible   []inbox.Email
	summaries map[string]string
}

func NewInboxView(app *App) *InboxView {
	iv := &InboxView{
		app:       app,
		filter:    pipeline.CategoryAll,
		summaries: make(map[string]string),
	}

	iv.search = tview.NewInputField().
		SetLabel("Search: ").
		SetFieldBackgroundColor(tcell.ColorDefault)
	iv.search.SetBackgroundColor(tcell.ColorDefault)
	iv.search.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			iv.query = iv.search.GetText()
		case tcell.KeyEscape:
			iv.query = ""
			iv.search.SetText("")
		}
		iv.refresh()
		app.Application.SetFocus(iv.list)
	})

	iv.list = tview.NewList().
		ShowSecondaryText(true).
		SetSecondaryTextColor(tcell.ColorDimGray)
	iv.list.SetBackgroundColor(tcell.ColorDefault)
	iv.list.SetSelectedStyle(tcell.StyleDefault.
		Foreground(tcell.ColorWhite).
		Background(tcell.ColorSteelBlue).
		Attributes(tcell.AttrBold))
	iv.list.SetBorder(true)
	iv.list.SetChangedFunc(func(index int, _, _ string, _ rune) {
		iv.showPreview(index)
	})
	iv.list.SetSelectedFunc(func(int, string, string, rune) {
		app.Application.SetFocus(iv.preview)
	})
	iv.list.SetInputCapture(iv.handleKey)

	iv.preview = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(true)
	iv.preview.SetBackgroundColor(tcell.ColorDefault)
	iv.preview.SetBorder(true).SetTitle("Preview")
	iv.preview.SetDoneFunc(func(tcell.Key) {
		app.Application.SetFocus(iv.list)
	})

	left := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(iv.search, 1, 0, false).
		AddItem(iv.list, 0, 1, true)

	iv.Flex = tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(left, 0, 2, true).
		AddItem(iv.preview, 0, 3, false)
	iv.Flex.SetBackgroundColor(tcell.ColorDefault)
	return iv
}

func (iv *InboxView) handleKey(event *tcell.EventKey) *tcell.EventKey {
	switch event.Rune() {
	case 'f':
		iv.filter = nextCategory(iv.filter)
		iv.refresh()
		iv.app.setStandardStatus()
		return nil
	case '/':
		iv.app.Application.SetFocus(iv.search)
		return nil
	case 'p':
		iv.app.processInbox()
		return nil
	}

	email, ok := iv.selected()
	if !ok {
		return event
	}
	switch event.Rune() {
	case 'e':
		iv.app.processEmail(email.ID)
		return nil
	case 's':
		iv.app.summarize(email.ID)
		return nil
	case 'r':
		iv.openReplyForm(email)
		return nil
	}
	return event
}

// refresh reloads the list from the pipeline, applying the category filter
// and the search query, and keeps the selected email selected.
func (iv *InboxView) refresh() {
	selectedID := ""
	if e, ok := iv.selected(); ok {
		selectedID = e.ID
	}

	emails := iv.app.proc.FilterByCategory(iv.filter)
	if iv.query != "" {
		matched := make(map[string]bool)
		for _, e := range iv.app.proc.Search(iv.query) {
			matched[e.ID] = true
		}
		kept := emails[:0]
		for _, e := range emails {
			if matched[e.ID] {
				kept = append(kept, e)
			}
		}
		emails = kept
	}
	iv.visible = emails

	iv.list.Clear()
	selectedIdx := 0
	for i, e := range emails {
		main, secondary := emailListItem(e)
		iv.list.AddItem(main, secondary, 0, nil)
		if e.ID == selectedID {
			selectedIdx = i
		}
	}

	title := fmt.Sprintf("Inbox (%d) · %s", len(emails), iv.filter)
	if iv.query != "" {
		title += fmt.Sprintf(" · %q", iv.query)
	}
	iv.list.SetTitle(title)

	if len(emails) == 0 {
		iv.setWelcome()
		return
	}
	iv.list.SetCurrentItem(selectedIdx)
	iv.showPreview(selectedIdx)
}

func (iv *InboxView) selected() (inbox.Email, bool) {
	idx := iv.list.GetCurrentItem()
	if idx < 0 || idx >= len(iv.visible) || iv.list.GetItemCount() == 0 {
		return inbox.Email{}, false
	}
	return iv.visible[idx], true
}

func (iv *InboxView) showPreview(index int) {
	if index < 0 || index >= len(iv.visible) {
		iv.setWelcome()
		return
	}
	e := iv.visible[index]
	iv.preview.SetText(emailDetail(e, iv.summaries[e.ID])).ScrollToBeginning()
	iv.preview.SetTitle(fmt.Sprintf("Preview: %s", tview.Escape(truncate(e.Subject, 40))))
}

func (iv *InboxView) setWelcome() {
	iv.preview.SetText("\n[lightblue::b]mailagent[-::-]\n\nNo email selected or list is empty.\n\n" +
		"[::d]Navigate emails with ↑ ↓ keys.\nPress p to process the inbox.\nPress f to change the category filter.[::-]").
		ScrollToBeginning()
	iv.preview.SetTitle("Home")
}

func (iv *InboxView) setSummary(id, summary string) {
	iv.summaries[id] = summary
	if e, ok := iv.selected(); ok && e.ID == id {
		iv.showPreview(iv.list.GetCurrentItem())
	}
}

func (iv *InboxView) openReplyForm(email inbox.Email) {
	app := iv.app
	if !app.requireLLM() {
		return
	}

	form := tview.NewForm()
	form.AddTextArea("Instructions", pipeline.DefaultReplyInstructions, 0, 4, 0, nil).
		AddDropDown("Tone", pipeline.Tones, 0, nil).
		AddButton("Generate Draft", func() {
			instructions := form.GetFormItemByLabel("Instructions").(*tview.TextArea).GetText()
			_, tone := form.GetFormItemByLabel("Tone").(*tview.DropDown).GetCurrentOption()
			app.closeOverlay(PageReply)
			app.background("Generating reply", func() func() {
				d, err := app.proc.DraftReply(app.ctx, email.ID, instructions, tone)
				return func() {
					if err != nil {
						app.log.Error().Err(err).Str("email_id", email.ID).Msg("reply draft failed")
						app.flash(fmt.Sprintf("[red]%s[-]", tview.Escape(err.Error())))
						return
					}
					app.draftsView.refresh()
					app.flash(fmt.Sprintf("[green]Draft created: %s[-]", tview.Escape(truncate(d.Subject, 40))))
				}
			})
		}).
		AddButton("Cancel", func() {
			app.closeOverlay(PageReply)
		})
	form.SetBorder(true).
		SetTitle(fmt.Sprintf(" Reply to %s ", tview.Escape(truncate(shortSender(email.Sender), 30))))
	app.showOverlay(PageReply, form, 70, 14)
}
