package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/globalmed/clinic-catalog/pkg/catalog"
	"github.com/globalmed/clinic-catalog/pkg/logging"
	"github.com/globalmed/clinic-catalog/pkg/pager"
)

// Options configures the browser.
type Options struct {
	Context    context.Context
	Controller *pager.Controller[catalog.Doctor]

	// Filters are applied on start. Their Locale also selects the texts.
	Filters catalog.DoctorFilters
}

// fetchDoneMsg reports the completion of a controller operation.
type fetchDoneMsg struct {
	err error
}

// Model is the Bubble Tea model of the doctors browser.
type Model struct {
	ctx     context.Context
	ctrl    *pager.Controller[catalog.Doctor]
	filters catalog.DoctorFilters
	logger  zerolog.Logger

	keys    keyMap
	text    Strings
	styles  styles
	help    help.Model
	spinner spinner.Model
	search  textinput.Model

	searching bool
	pending   bool
	view      pager.View[catalog.Doctor]
}

// New creates the browser model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	text := StringsFor(opts.Filters.Locale)

	search := textinput.New()
	search.Prompt = text.SearchPrompt
	search.CharLimit = 64
	search.SetValue(opts.Filters.Search)

	return Model{
		ctx:     ctx,
		ctrl:    opts.Controller,
		filters: opts.Filters,
		logger:  logging.NewLogger("ui"),
		keys:    defaultKeyMap(),
		text:    text,
		styles:  defaultStyles(),
		help:    help.New(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		search:  search,
		pending: true,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.applyFilters())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.searching {
			return m.handleSearchKey(msg)
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case fetchDoneMsg:
		m.pending = false
		if msg.err != nil && !pager.IsStale(msg.err) {
			m.logger.Debug().Err(msg.err).Msg("Fetch finished with error")
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Search):
		m.searching = true
		m.search.SetValue(m.filters.Search)
		m.search.CursorEnd()
		return m, m.search.Focus()

	case key.Matches(msg, m.keys.LoadMore):
		m.refresh()
		if m.pending || !m.view.LoadMoreEnabled {
			return m, nil
		}
		m.pending = true
		return m, m.run(m.ctrl.LoadMore)

	case key.Matches(msg, m.keys.Retry):
		m.refresh()
		if m.pending || m.view.IsLoading || m.view.LastError == nil {
			return m, nil
		}
		m.pending = true
		return m, m.run(m.ctrl.Retry)
	}

	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.searching = false
		m.search.Blur()
		return m, nil

	case key.Matches(msg, m.keys.Confirm):
		m.searching = false
		m.search.Blur()
		m.filters.Search = strings.TrimSpace(m.search.Value())
		m.pending = true
		return m, m.applyFilters()
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

// applyFilters hands the current filters to the controller, which only
// refetches when they changed.
func (m Model) applyFilters() tea.Cmd {
	ctrl, ctx, filters := m.ctrl, m.ctx, m.filters.Filters()
	return func() tea.Msg {
		_, err := ctrl.OnFilterChange(ctx, filters)
		return fetchDoneMsg{err: err}
	}
}

func (m Model) run(op func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return fetchDoneMsg{err: op(ctx)}
	}
}

func (m *Model) refresh() {
	m.view = m.ctrl.View()
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render(m.text.OurSpecialists))
	b.WriteString("\n")

	if m.searching {
		b.WriteString(m.styles.SearchBar.Render(m.search.View()))
		b.WriteString("\n\n")
	} else if m.filters.Search != "" {
		b.WriteString(m.styles.Muted.Render(m.text.SearchPrompt + m.filters.Search))
		b.WriteString("\n\n")
	}

	loading := m.pending || m.view.IsLoading

	switch m.display() {
	case pager.DisplayLoading:
		fmt.Fprintf(&b, "%s %s\n", m.spinner.View(), m.text.Loading)

	case pager.DisplayError:
		b.WriteString(m.styles.Error.Render(m.text.Error))
		b.WriteString("\n")
		b.WriteString(m.styles.Muted.Render(pager.Classify(m.view.LastError).Description()))
		b.WriteString("\n\n")
		b.WriteString(m.styles.Button.Render("[r] " + m.text.TryAgain))
		b.WriteString("\n")

	case pager.DisplayEmpty:
		b.WriteString(m.styles.Muted.Render(m.text.NoResults))
		b.WriteString("\n")

	default:
		for _, d := range m.view.VisibleItems {
			b.WriteString(m.renderDoctor(d))
			b.WriteString("\n")
		}

		if m.view.LastError != nil {
			b.WriteString("\n")
			b.WriteString(m.styles.Error.Render(m.text.Error))
			b.WriteString(m.styles.Muted.Render("  [r] " + m.text.TryAgain))
			b.WriteString("\n")
		}

		if m.view.HasMore {
			b.WriteString("\n")
			if loading {
				b.WriteString(m.styles.Disabled.Render(m.spinner.View() + " " + m.text.Loading))
			} else {
				b.WriteString(m.styles.Button.Render("[m] " + m.text.ShowMore))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// display is the controller display state, with a command not yet picked
// up by the controller counted as loading.
func (m Model) display() pager.Display {
	if m.view.Display == pager.DisplayItems {
		return pager.DisplayItems
	}
	if m.pending {
		return pager.DisplayLoading
	}
	return m.view.Display
}

func (m Model) renderDoctor(d catalog.Doctor) string {
	name := m.styles.Name.Render(d.FullName)

	var meta []string
	if d.Specialization != "" {
		meta = append(meta, d.Specialization)
	}
	if exp := d.Experience(); exp != "" {
		meta = append(meta, exp)
	}
	if len(meta) == 0 {
		return name
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, name, "  ", m.styles.Meta.Render(strings.Join(meta, " · ")))
}

// Run starts the browser and blocks until the user quits or ctx ends.
func Run(opts Options) error {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	opts.Context = ctx

	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
