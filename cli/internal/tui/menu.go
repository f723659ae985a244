// Package tui collects the user's decisions: a selection menu and a yes/no
// confirmation rendered with Bubble Tea on terminals, a plain line-based
// prompter elsewhere, and a spinner shown while the model works.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ollacommit/cli/internal/commitmsg"
)

// ErrInterrupted indicates the user quit a prompt without answering.
var ErrInterrupted = errors.New("prompt interrupted")

const listHeight = 14

var (
	titleStyle        = lipgloss.NewStyle().MarginLeft(2).Bold(true)
	itemStyle         = lipgloss.NewStyle().PaddingLeft(4)
	selectedItemStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("170"))
	regenerateStyle   = lipgloss.NewStyle().PaddingLeft(4).Faint(true)
	paginationStyle   = list.DefaultStyles().PaginationStyle.PaddingLeft(4)
	helpStyle         = list.DefaultStyles().HelpStyle.PaddingLeft(4).PaddingBottom(1)
	questionStyle     = lipgloss.NewStyle().Bold(true)
	hintStyle         = lipgloss.NewStyle().Faint(true)
)

type item struct {
	candidate commitmsg.Candidate
}

func (i item) FilterValue() string { return i.candidate.Label() }

type itemDelegate struct{}

func (d itemDelegate) Height() int                             { return 1 }
func (d itemDelegate) Spacing() int                            { return 0 }
func (d itemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(item)
	if !ok {
		return
	}
	str := i.candidate.Label()
	fn := itemStyle.Render
	if i.candidate.IsRegenerate() {
		fn = regenerateStyle.Render
	}
	if index == m.Index() {
		fn = func(s ...string) string {
			return selectedItemStyle.Render("> " + strings.Join(s, " "))
		}
	}
	fmt.Fprint(w, fn(str))
}

type menuModel struct {
	list     list.Model
	choice   int
	quitting bool
}

func (m menuModel) Init() tea.Cmd {
	return nil
}

func (m menuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetWidth(msg.Width)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			m.choice = m.list.Index()
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m menuModel) View() string {
	if m.quitting || m.choice >= 0 {
		return ""
	}
	return m.list.View()
}

func newMenu(title string, candidates []commitmsg.Candidate) menuModel {
	items := make([]list.Item, len(candidates))
	for i, c := range candidates {
		items[i] = item{candidate: c}
	}
	const defaultWidth = 80
	height := len(items) + 6
	if height > listHeight {
		height = listHeight
	}
	l := list.New(items, itemDelegate{}, defaultWidth, height)
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = titleStyle
	l.Styles.PaginationStyle = paginationStyle
	l.Styles.HelpStyle = helpStyle
	return menuModel{list: l, choice: -1}
}

type confirmModel struct {
	question string
	def      bool
	answer   *bool
	quitting bool
}

func (m confirmModel) Init() tea.Cmd {
	return nil
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	yes, no := true, false
	switch key.String() {
	case "y", "Y":
		m.answer = &yes
	case "n", "N":
		m.answer = &no
	case "enter":
		def := m.def
		m.answer = &def
	case "esc", "ctrl+c":
		m.quitting = true
	default:
		return m, nil
	}
	return m, tea.Quit
}

func (m confirmModel) View() string {
	hint := "(y/N)"
	if m.def {
		hint = "(Y/n)"
	}
	if m.answer != nil {
		a := "No"
		if *m.answer {
			a = "Yes"
		}
		return fmt.Sprintf("? %s %s\n", questionStyle.Render(m.question), a)
	}
	if m.quitting {
		return ""
	}
	return fmt.Sprintf("? %s %s ", questionStyle.Render(m.question), hintStyle.Render(hint))
}

// Prompter renders prompts with Bubble Tea. Use it only when IsTTY is true.
type Prompter struct{}

// Confirm asks a yes/no question; enter picks def.
func (Prompter) Confirm(ctx context.Context, question string, def bool) (bool, error) {
	final, err := tea.NewProgram(confirmModel{question: question, def: def}, tea.WithContext(ctx)).Run()
	if err != nil {
		return false, err
	}
	m, ok := final.(confirmModel)
	if !ok || m.answer == nil {
		return false, ErrInterrupted
	}
	return *m.answer, nil
}

// Select shows candidates as a single-choice menu and returns the chosen index.
func (Prompter) Select(ctx context.Context, title string, candidates []commitmsg.Candidate) (int, error) {
	final, err := tea.NewProgram(newMenu(title, candidates), tea.WithContext(ctx)).Run()
	if err != nil {
		return -1, err
	}
	m, ok := final.(menuModel)
	if !ok || m.quitting || m.choice < 0 {
		return -1, ErrInterrupted
	}
	return m.choice, nil
}
