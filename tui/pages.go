package tui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/bassamadnan/mailagent/drafts"
)

// PromptsView lists the prompt templates and edits the selected one.
type PromptsView struct {
	*tview.Flex
	app         *App
	list        *tview.List
	description *tview.TextView
	editor      *tview.TextArea
	keys        []string
}

func NewPromptsView(app *App) *PromptsView {
	pv := &PromptsView{app: app}

	pv.list = tview.NewList().ShowSecondaryText(false)
	pv.list.SetBackgroundColor(tcell.ColorDefault)
	pv.list.SetBorder(true).SetTitle("Prompts")
	pv.list.SetChangedFunc(func(index int, _, _ string, _ rune) {
		pv.load(index)
	})
	pv.list.SetSelectedFunc(func(int, string, string, rune) {
		app.Application.SetFocus(pv.editor)
	})

	pv.description = tview.NewTextView().SetDynamicColors(true).SetWrap(true)
	pv.description.SetBackgroundColor(tcell.ColorDefault)

	pv.editor = tview.NewTextArea()
	pv.editor.SetBorder(true).SetTitle("Template")
	pv.editor.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlS:
			pv.save()
			return nil
		case tcell.KeyEscape:
			app.Application.SetFocus(pv.list)
			return nil
		}
		return event
	})

	right := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(pv.description, 2, 0, false).
		AddItem(pv.editor, 0, 1, false)

	pv.Flex = tview.NewFlex().
		AddItem(pv.list, 0, 1, true).
		AddItem(right, 0, 3, false)
	pv.Flex.SetBackgroundColor(tcell.ColorDefault)
	return pv
}

func (pv *PromptsView) refresh() {
	pv.keys = pv.app.promptStore.Keys()
	current := pv.list.GetCurrentItem()
	pv.list.Clear()
	if len(pv.keys) == 0 {
		pv.description.SetText("[red]No prompts found. Check that the prompts file exists.[-]")
		pv.editor.SetText("", false)
		return
	}
	for _, key := range pv.keys {
		tpl, _ := pv.app.promptStore.Get(key)
		name := tpl.Name
		if name == "" {
			name = key
		}
		pv.list.AddItem(tview.Escape(name), "", 0, nil)
	}
	if current < 0 || current >= len(pv.keys) {
		current = 0
	}
	pv.list.SetCurrentItem(current)
	pv.load(current)
}

func (pv *PromptsView) load(index int) {
	if index < 0 || index >= len(pv.keys) {
		return
	}
	tpl, ok := pv.app.promptStore.Get(pv.keys[index])
	if !ok {
		return
	}
	pv.description.SetText(fmt.Sprintf("[::b]%s[::-] [::d](%s)[::-]\n%s",
		tview.Escape(tpl.Name), pv.keys[index], tview.Escape(tpl.Description)))
	pv.editor.SetText(tpl.Template, false)
}

func (pv *PromptsView) save() {
	index := pv.list.GetCurrentItem()
	if index < 0 || index >= len(pv.keys) {
		return
	}
	key := pv.keys[index]
	if pv.app.promptStore.Update(key, pv.editor.GetText()) {
		pv.app.flash(fmt.Sprintf("[green]Prompt %q saved[-]", key))
		return
	}
	pv.app.flash(fmt.Sprintf("[red]Saving prompt %q failed, see log[-]", key))
}

// DraftsView lists saved drafts with an editor for the selected one.
type DraftsView struct {
	*tview.Flex
	app     *App
	list    *tview.List
	form    *tview.Form
	subject *tview.InputField
	body    *tview.TextArea
	items   []drafts.Draft
}

func NewDraftsView(app *App) *DraftsView {
	dv := &DraftsView{app: app}

	dv.list = tview.NewList().
		ShowSecondaryText(true).
		SetSecondaryTextColor(tcell.ColorDimGray)
	dv.list.SetBackgroundColor(tcell.ColorDefault)
	dv.list.SetBorder(true)
	dv.list.SetChangedFunc(func(index int, _, _ string, _ rune) {
		dv.load(index)
	})
	dv.list.SetSelectedFunc(func(int, string, string, rune) {
		app.Application.SetFocus(dv.form)
	})
	dv.list.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Rune() {
		case 'n':
			dv.openNewDraftForm()
			return nil
		case 'd':
			dv.deleteSelected()
			return nil
		}
		return event
	})

	dv.subject = tview.NewInputField().SetLabel("Subject")
	dv.body = tview.NewTextArea().SetLabel("Body").SetSize(16, 0)

	dv.form = tview.NewForm().
		AddFormItem(dv.subject).
		AddFormItem(dv.body).
		AddButton("Save", dv.saveSelected).
		AddButton("Delete", dv.deleteSelected)
	dv.form.SetBorder(true).SetTitle("Draft")
	dv.form.SetCancelFunc(func() {
		app.Application.SetFocus(dv.list)
	})

	dv.Flex = tview.NewFlex().
		AddItem(dv.list, 0, 2, true).
		AddItem(dv.form, 0, 3, false)
	dv.Flex.SetBackgroundColor(tcell.ColorDefault)
	return dv
}

func (dv *DraftsView) refresh() {
	current := dv.list.GetCurrentItem()
	dv.items = dv.app.draftStore.All()
	dv.list.Clear()
	dv.list.SetTitle(fmt.Sprintf("Drafts (%d)", len(dv.items)))
	if len(dv.items) == 0 {
		dv.subject.SetText("")
		dv.body.SetText("No drafts yet. Press n to generate one.", false)
		return
	}
	for _, d := range dv.items {
		main, secondary := draftListItem(d)
		dv.list.AddItem(main, secondary, 0, nil)
	}
	if current < 0 || current >= len(dv.items) {
		current = 0
	}
	dv.list.SetCurrentItem(current)
	dv.load(current)
}

func (dv *DraftsView) selected() (drafts.Draft, bool) {
	idx := dv.list.GetCurrentItem()
	if idx < 0 || idx >= len(dv.items) || dv.list.GetItemCount() == 0 {
		return drafts.Draft{}, false
	}
	return dv.items[idx], true
}

func (dv *DraftsView) load(index int) {
	if index < 0 || index >= len(dv.items) {
		return
	}
	d := dv.items[index]
	dv.subject.SetText(d.Subject)
	dv.body.SetText(d.Body, false)
}

func (dv *DraftsView) saveSelected() {
	d, ok := dv.selected()
	if !ok {
		return
	}
	if err := dv.app.draftStore.Update(d.ID, dv.subject.GetText(), dv.body.GetText()); err != nil {
		dv.app.flash(fmt.Sprintf("[red]%s[-]", tview.Escape(err.Error())))
		return
	}
	dv.refresh()
	dv.app.flash("[green]Draft saved[-]")
}

func (dv *DraftsView) deleteSelected() {
	d, ok := dv.selected()
	if !ok {
		return
	}
	dv.app.confirm(fmt.Sprintf("Delete draft %q?", truncate(d.Subject, 40)), func() {
		if err := dv.app.draftStore.Delete(d.ID); err != nil {
			dv.app.flash(fmt.Sprintf("[red]%s[-]", tview.Escape(err.Error())))
			return
		}
		dv.refresh()
		dv.app.flash("[green]Draft deleted[-]")
	})
}

func (dv *DraftsView) openNewDraftForm() {
	app := dv.app
	if !app.requireLLM() {
		return
	}

	form := tview.NewForm()
	form.AddInputField("Subject", "", 0, nil, nil).
		AddTextArea("What should this email say?", "", 0, 5, 0, nil).
		AddButton("Generate", func() {
			subject := form.GetFormItemByLabel("Subject").(*tview.InputField).GetText()
			instructions := form.GetFormItemByLabel("What should this email say?").(*tview.TextArea).GetText()
			if strings.TrimSpace(subject) == "" || strings.TrimSpace(instructions) == "" {
				app.flash("[yellow]Please fill in both subject and instructions.[-]")
				return
			}
			app.closeOverlay(PageNewDraft)
			app.background("Generating draft", func() func() {
				d, err := app.proc.NewDraft(app.ctx, subject, instructions)
				return func() {
					if err != nil {
						app.log.Error().Err(err).Msg("new draft failed")
						app.flash(fmt.Sprintf("[red]%s[-]", tview.Escape(err.Error())))
						return
					}
					dv.refresh()
					app.flash(fmt.Sprintf("[green]Draft created: %s[-]", tview.Escape(truncate(d.Subject, 40))))
				}
			})
		}).
		AddButton("Cancel", func() {
			app.closeOverlay(PageNewDraft)
		})
	form.SetBorder(true).SetTitle(" New Draft ")
	app.showOverlay(PageNewDraft, form, 70, 15)
}

// AgentView is a chat over the inbox.
type AgentView struct {
	*tview.Flex
	app        *App
	transcript *tview.TextView
	input      *tview.InputField
	busy       bool
}

func NewAgentView(app *App) *AgentView {
	av := &AgentView{app: app}

	av.transcript = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(true)
	av.transcript.SetBackgroundColor(tcell.ColorDefault)
	av.transcript.SetBorder(true).SetTitle("Email Agent")
	av.transcript.SetText("[::d]Ask me anything about your emails.[::-]\n")

	av.input = tview.NewInputField().
		SetLabel("> ").
		SetPlaceholder("e.g. Which emails need a reply today?")
	av.input.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			av.ask(av.input.GetText())
		case tcell.KeyEscape:
			app.Application.SetFocus(av.transcript)
		}
	})
	av.transcript.SetDoneFunc(func(tcell.Key) {
		app.Application.SetFocus(av.input)
	})

	av.Flex = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(av.transcript, 0, 1, false).
		AddItem(av.input, 1, 0, true)
	av.Flex.SetBackgroundColor(tcell.ColorDefault)
	return av
}

func (av *AgentView) ask(question string) {
	question = strings.TrimSpace(question)
	if question == "" || av.busy || !av.app.requireLLM() {
		return
	}
	av.busy = true
	av.input.SetText("")
	av.appendMessage("You", question)

	app := av.app
	app.background("Thinking", func() func() {
		answer := app.proc.Ask(app.ctx, question)
		return func() {
			av.busy = false
			av.appendMessage("Agent", answer)
			app.setStandardStatus()
		}
	})
}

func (av *AgentView) appendMessage(role, text string) {
	color := "lightblue"
	if role == "Agent" {
		color = "green"
	}
	fmt.Fprintf(av.transcript, "\n[%s::b]%s:[-::-] %s\n", color, role, tview.Escape(text))
	av.transcript.ScrollToEnd()
}
