package ui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/dastanaron/dial/internal/cache"
	"github.com/dastanaron/dial/internal/models"
	"github.com/dastanaron/dial/internal/palette"
	"github.com/dastanaron/dial/internal/settings"
)

// center places p in the middle of the screen at the given size
func center(p tview.Primitive, width, height int) tview.Primitive {
	return tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(p, height, 0, true).
			AddItem(nil, 0, 1, false), width, 0, true).
		AddItem(nil, 0, 1, false)
}

func (a *App) openDialog(name string, p tview.Primitive, width, height int) {
	a.pages.AddPage(name, center(p, width, height), true, true)
	a.app.SetFocus(p)
	a.mode = ModeForm
}

func (a *App) closeDialog() {
	for _, name := range []string{pageForm, pageMove, pagePreferences} {
		a.pages.RemovePage(name)
	}
	a.setMode(ModeNormal)
}

func (a *App) styleForm(form *tview.Form) {
	accent := palette.Accent(a.prefs.Accent)
	form.SetBackgroundColor(tcellColor(a.theme.Surface))
	form.SetBorderColor(tcellColor(accent.Base))
	form.SetTitleColor(tcellColor(a.theme.Text))
	form.SetLabelColor(tcellColor(a.theme.Text))
	form.SetFieldBackgroundColor(tcellColor(a.theme.Background))
	form.SetFieldTextColor(tcellColor(a.theme.Text))
	form.SetButtonBackgroundColor(tcellColor(accent.Base))
	form.SetButtonTextColor(tcellColor(accent.Contrast))
}

// showAddForm asks for a URL and an optional title
func (a *App) showAddForm() {
	folderID := a.view.FolderID
	if folderID == "" {
		a.showError("The Bookmark Dial folder is unavailable. Press r to try again.")
		return
	}

	var rawURL, title string
	form := tview.NewForm()
	form.AddInputField("URL", "", 50, nil, func(t string) { rawURL = t })
	form.AddInputField("Title", "", 50, nil, func(t string) { title = t })
	form.AddButton("Save", func() {
		a.background(func() {
			_, err := a.deps.Service.AddShortcut(a.ctx, folderID, rawURL, title)
			a.app.QueueUpdateDraw(func() {
				if err != nil {
					a.logger.Debug("add shortcut failed", "err", err)
					a.showError(userMessage(err))
					return
				}
				a.closeDialog()
			})
		})
	})
	form.AddButton("Cancel", a.closeDialog)

	form.SetBorder(true).SetTitle("Add shortcut")
	a.styleForm(form)
	a.openDialog(pageForm, form, 64, 9)
}

func (a *App) showRenameForm(n models.TreeNode) {
	title := n.Title
	form := tview.NewForm()
	form.AddInputField("Title", title, 50, nil, func(t string) { title = t })
	form.AddButton("Save", func() {
		a.background(func() {
			err := a.deps.Service.Rename(a.ctx, n.ID, title)
			a.app.QueueUpdateDraw(func() {
				if err != nil {
					a.showError(userMessage(err))
					return
				}
				a.closeDialog()
			})
		})
	})
	form.AddButton("Cancel", a.closeDialog)

	form.SetBorder(true).SetTitle("Rename shortcut")
	a.styleForm(form)
	a.openDialog(pageForm, form, 64, 7)
}

func (a *App) confirmRemove(n models.TreeNode) {
	name := n.Title
	if name == "" {
		name = n.URL
	}
	a.showConfirm(fmt.Sprintf("Remove %q from Bookmark Dial?", name), func() {
		a.background(func() {
			if err := a.deps.Service.RemoveShortcut(a.ctx, n.ID); err != nil {
				a.app.QueueUpdateDraw(func() { a.showError(userMessage(err)) })
			}
		})
	})
}

// showMoveDialog lets the user pick any cached folder as the new parent
func (a *App) showMoveDialog(n models.TreeNode) {
	entries := a.deps.Tree.BuildSearchIndex()
	current := a.view.FolderID

	input := tview.NewInputField().SetLabel("Folder: ")
	list := tview.NewList().ShowSecondaryText(false)
	var shown []cache.SearchEntry

	fill := func(query string) {
		list.Clear()
		shown = shown[:0]
		for _, e := range cache.Filter(entries, query) {
			if e.ID == current {
				continue
			}
			shown = append(shown, e)
			list.AddItem(tview.Escape(strings.Join(e.Path, " / ")), "", 0, nil)
		}
	}
	fill("")

	list.SetSelectedFunc(func(index int, _, _ string, _ rune) {
		if index < 0 || index >= len(shown) {
			return
		}
		target := shown[index]
		a.closeDialog()
		a.background(func() {
			if err := a.deps.Service.MoveToFolder(a.ctx, n.ID, target.ID); err != nil {
				a.app.QueueUpdateDraw(func() { a.showError(userMessage(err)) })
				return
			}
			a.app.QueueUpdateDraw(func() { a.showToast("Moved to " + target.Title) })
		})
	})
	input.SetChangedFunc(fill)
	input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter || key == tcell.KeyTab || key == tcell.KeyDown {
			a.app.SetFocus(list)
		}
	})
	list.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyTab || (event.Key() == tcell.KeyUp && list.GetCurrentItem() == 0) {
			a.app.SetFocus(input)
			return nil
		}
		return event
	})

	accent := palette.Accent(a.prefs.Accent)
	input.SetBackgroundColor(tcellColor(a.theme.Surface))
	input.SetFieldBackgroundColor(tcellColor(a.theme.Background))
	input.SetFieldTextColor(tcellColor(a.theme.Text))
	input.SetLabelColor(tcellColor(a.theme.Text))
	list.SetBackgroundColor(tcellColor(a.theme.Surface))
	list.SetMainTextColor(tcellColor(a.theme.Text))
	list.SetSelectedBackgroundColor(tcellColor(accent.Base))
	list.SetSelectedTextColor(tcellColor(accent.Contrast))

	box := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(input, 1, 0, true).
		AddItem(list, 0, 1, false)
	box.SetBorder(true).SetTitle(fmt.Sprintf("Move %q to", n.Title))
	box.SetBackgroundColor(tcellColor(a.theme.Surface))
	box.SetBorderColor(tcellColor(accent.Base))
	a.openDialog(pageMove, box, 64, 18)
	a.app.SetFocus(input)
}

// showPreferences edits theme, accent and background. Picking a background
// also picks its matching accent, which can still be changed afterwards.
func (a *App) showPreferences() {
	prefs := a.prefs

	themeIndex := 0
	for i, id := range palette.ThemeIDs {
		if id == prefs.Theme {
			themeIndex = i
		}
	}
	accentIndex := 0
	accentLabels := make([]string, len(palette.Accents))
	for i, opt := range palette.Accents {
		accentLabels[i] = opt.Label
		if opt.ID == prefs.Accent {
			accentIndex = i
		}
	}
	current := backgroundFor(prefs)
	backgroundIndex := -1
	backgroundLabels := make([]string, len(palette.Gradients))
	for i, g := range palette.Gradients {
		backgroundLabels[i] = g.Label
		if current != nil && g.ID == current.ID {
			backgroundIndex = i
		}
	}

	ready := false
	form := tview.NewForm()
	form.AddDropDown("Theme", palette.ThemeIDs, themeIndex, func(option string, index int) {
		if index >= 0 {
			prefs.Theme = palette.ThemeIDs[index]
		}
	})
	form.AddDropDown("Accent", accentLabels, accentIndex, func(option string, index int) {
		if index >= 0 {
			prefs.Accent = palette.Accents[index].ID
		}
	})
	accentDropDown, _ := form.GetFormItemByLabel("Accent").(*tview.DropDown)
	form.AddDropDown("Background", backgroundLabels, backgroundIndex, func(option string, index int) {
		if index < 0 || !ready {
			return
		}
		g := palette.Gradients[index]
		prefs = withGradient(prefs, g.ID)
		for i, opt := range palette.Accents {
			if opt.ID == g.Accent && accentDropDown != nil {
				accentDropDown.SetCurrentOption(i)
			}
		}
	})
	ready = true
	form.AddButton("Save", func() {
		if prefs.Version == 0 {
			prefs.Version = settings.PreferencesVersion
		}
		a.prefs = prefs
		a.applyAppearance()
		a.savePreferences(prefs)
		a.closeDialog()
	})
	form.AddButton("Cancel", a.closeDialog)

	form.SetBorder(true).SetTitle("Preferences")
	a.styleForm(form)
	a.openDialog(pagePreferences, form, 48, 11)
}

// showError shows a modal with an error message
func (a *App) showError(message string) {
	modal := tview.NewModal().
		SetText(message).
		AddButtons([]string{"OK"}).
		SetDoneFunc(func(buttonIndex int, buttonLabel string) {
			a.pages.RemovePage(pageError)
			a.restoreDialogMode()
		})

	modal.SetBorder(true).SetTitle("Error")
	a.pages.AddPage(pageError, modal, true, true)
	a.mode = ModeModal
	a.app.SetFocus(modal)
}

func (a *App) showConfirm(message string, onConfirm func()) {
	modal := tview.NewModal().
		SetText(message).
		AddButtons([]string{"Cancel", "OK"}).
		SetDoneFunc(func(buttonIndex int, buttonLabel string) {
			a.pages.RemovePage(pageConfirm)
			if buttonIndex == 1 && onConfirm != nil {
				onConfirm()
			}
			a.restoreDialogMode()
		})

	modal.SetBorder(true).SetTitle("Confirm")
	a.pages.AddPage(pageConfirm, modal, true, true)
	a.mode = ModeModal
	a.app.SetFocus(modal)
}

// restoreDialogMode returns focus to an open form, or to the main screen
func (a *App) restoreDialogMode() {
	for _, name := range []string{pageForm, pageMove, pagePreferences} {
		if a.pages.HasPage(name) {
			a.mode = ModeForm
			a.pages.SendToFront(name)
			if front, p := a.pages.GetFrontPage(); front == name {
				a.app.SetFocus(p)
			}
			return
		}
	}
	a.setMode(ModeNormal)
}
