package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/trendrank/internal/formatter"
	"github.com/desertthunder/trendrank/internal/shared"
)

// BoardKind selects which leaderboard the model displays.
type BoardKind int

const (
	DailyBoard BoardKind = iota
	CumulativeBoard
	WeeklyBoard
)

var boardKinds = []BoardKind{DailyBoard, CumulativeBoard, WeeklyBoard}

func (k BoardKind) String() string {
	switch k {
	case DailyBoard:
		return "Daily"
	case CumulativeBoard:
		return "Cumulative"
	case WeeklyBoard:
		return "Weekly"
	default:
		return "Unknown"
	}
}

// step is the number of days a single date move covers.
func (k BoardKind) step() int {
	if k == WeeklyBoard {
		return 7
	}
	return 1
}

// Loader reads the board of kind for date.
type Loader func(ctx context.Context, kind BoardKind, date string) (formatter.Board, error)

const maxColumnWidth = 32

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	load    Loader
	kind    BoardKind
	dates   map[BoardKind]string
	board   formatter.Board
	table   table.Model
	loading bool
	width   int
	height  int
	err     error
	help    help.Model
	keys    keyMap
}

// NewModel creates a browser starting on the daily board. dates holds the initial date per board;
// boards without an entry open at the daily date.
func NewModel(ctx context.Context, load Loader, dates map[BoardKind]string) *Model {
	d := make(map[BoardKind]string, len(boardKinds))
	for _, k := range boardKinds {
		d[k] = dates[k]
		if d[k] == "" {
			d[k] = dates[DailyBoard]
		}
	}

	t := table.New(table.WithFocused(true), table.WithHeight(15))
	s := table.DefaultStyles()
	s.Header = s.Header.Bold(true).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true)
	s.Selected = s.Selected.Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#7D56F4"))
	t.SetStyles(s)

	return &Model{
		ctx:     ctx,
		load:    load,
		kind:    DailyBoard,
		dates:   d,
		table:   t,
		loading: true,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init starts loading the first board.
func (m Model) Init() tea.Cmd {
	kind, date := m.kind, m.dates[m.kind]
	return func() tea.Msg {
		board, err := m.load(m.ctx, kind, date)
		return boardLoadedMsg(kind, date, board, err)
	}
}

// Kind returns the board currently selected.
func (m Model) Kind() BoardKind {
	return m.kind
}

// Date returns the date of the board currently selected.
func (m Model) Date() string {
	return m.dates[m.kind]
}

func (m *Model) fetch() tea.Cmd {
	m.loading = true
	kind, date := m.kind, m.dates[m.kind]
	return func() tea.Msg {
		board, err := m.load(m.ctx, kind, date)
		return boardLoadedMsg(kind, date, board, err)
	}
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		if h := msg.Height - 8; h > 3 {
			m.table.SetHeight(h)
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case Msg:
		if msg.kind == MsgBoardLoaded {
			return m.handleBoardLoaded(msg.data.(boardResult))
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.next):
		m.kind = boardKinds[(int(m.kind)+1)%len(boardKinds)]
		cmd := m.fetch()
		return m, cmd
	case key.Matches(msg, m.keys.prev):
		m.kind = boardKinds[(int(m.kind)+len(boardKinds)-1)%len(boardKinds)]
		cmd := m.fetch()
		return m, cmd
	case key.Matches(msg, m.keys.older):
		return m.moveDate(-m.kind.step())
	case key.Matches(msg, m.keys.newer):
		return m.moveDate(m.kind.step())
	case key.Matches(msg, m.keys.reload):
		cmd := m.fetch()
		return m, cmd
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) moveDate(days int) (tea.Model, tea.Cmd) {
	next, err := shared.AddDays(m.dates[m.kind], days)
	if err != nil {
		m.err = err
		return m, nil
	}

	dates := make(map[BoardKind]string, len(m.dates))
	for k, v := range m.dates {
		dates[k] = v
	}
	dates[m.kind] = next
	m.dates = dates
	cmd := m.fetch()
	return m, cmd
}

func (m Model) handleBoardLoaded(res boardResult) (tea.Model, tea.Cmd) {
	if res.kind != m.kind || res.date != m.dates[m.kind] {
		return m, nil
	}

	m.loading = false
	if res.err != nil {
		m.err = res.err
		return m, nil
	}

	m.err = nil
	m.board = res.board
	m.setBoard(res.board)
	return m, nil
}

// setBoard swaps the table contents. Rows are cleared first so the viewport never renders old
// rows against new columns.
func (m *Model) setBoard(b formatter.Board) {
	rows := make([]table.Row, len(b.Rows))
	for i, r := range b.Rows {
		rows[i] = table.Row(r)
	}

	m.table.SetRows(nil)
	m.table.SetColumns(columns(b))
	m.table.SetRows(rows)
	m.table.GotoTop()
}

// columns sizes each column to its widest cell.
func columns(b formatter.Board) []table.Column {
	cols := make([]table.Column, len(b.Headers))
	for i, h := range b.Headers {
		w := lipgloss.Width(h)
		for _, r := range b.Rows {
			if i < len(r) {
				w = max(w, lipgloss.Width(r[i]))
			}
		}
		cols[i] = table.Column{Title: h, Width: min(w, maxColumnWidth)}
	}
	return cols
}

// View renders the current view.
func (m Model) View() string {
	var s strings.Builder

	tabs := make([]string, len(boardKinds))
	for i, k := range boardKinds {
		if k == m.kind {
			tabs[i] = styles.activeTab.Render(k.String())
		} else {
			tabs[i] = styles.tab.Render(k.String())
		}
	}
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...) + "\n\n")

	title := m.board.Title
	if title == "" {
		title = fmt.Sprintf("%s ranking %s", m.kind, m.Date())
	}
	s.WriteString(styles.title.Render(title) + "\n")

	switch {
	case len(m.table.Rows()) == 0 && !m.loading:
		s.WriteString(styles.warn.Render("No rows for this date.") + "\n")
	default:
		s.WriteString(m.table.View() + "\n")
	}

	switch {
	case m.err != nil:
		s.WriteString("\n" + styles.err.Render(fmt.Sprintf("Error: %v", m.err)) + "\n")
	case m.loading:
		s.WriteString("\n" + styles.help.Render("Loading "+m.Date()+"...") + "\n")
	}

	s.WriteString("\n" + m.help.View(m.keys))
	return s.String()
}
