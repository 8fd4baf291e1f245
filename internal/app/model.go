package app

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/spf13/afero"

	"github.com/nateberkopec/tasknotifier/internal/reminder"
	"github.com/nateberkopec/tasknotifier/internal/scheduler"
	"github.com/nateberkopec/tasknotifier/internal/service"
)

// Firer is the part of the scheduler the UI talks to.
type Firer interface {
	Fire(ctx context.Context, r reminder.Record) scheduler.Event
	WaitForEvent() tea.Cmd
}

type viewMode int

const (
	modeList viewMode = iota
	modeForm
	modeConfirmDelete
)

type statusKind int

const (
	statusNeutral statusKind = iota
	statusError
	statusSuccess
)

type statusMessage struct {
	text    string
	kind    statusKind
	expires time.Time
}

type area struct {
	top    int
	height int
}

// Config wires external dependencies for the app.
type Config struct {
	Service   *service.Service
	Scheduler Firer
	// Fs is used to check image paths typed into the form.
	Fs          afero.Fs
	BellEnabled bool
	// RefreshInterval controls how often the "next" column is recomputed.
	RefreshInterval time.Duration
	Now             func() time.Time
	// Notice is shown as an error in the status line at startup.
	Notice string
}

// Model implements the Bubble Tea program.
type Model struct {
	service         *service.Service
	scheduler       Firer
	fs              afero.Fs
	now             func() time.Time
	refreshInterval time.Duration

	mode        viewMode
	bellEnabled bool

	selectedIndex int
	scrollOffset  int
	width         int
	height        int

	form   *huh.Form
	fb     *formBindings
	editID string

	keys keyMap
	help help.Model

	status     statusMessage
	firing     bool
	lastEvents map[string]scheduler.Event

	listArea area
}

// New creates a Bubble Tea model over the records held by cfg.Service.
func New(cfg Config) *Model {
	fs := cfg.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	refresh := cfg.RefreshInterval
	if refresh <= 0 {
		refresh = 15 * time.Second
	}

	m := &Model{
		service:         cfg.Service,
		scheduler:       cfg.Scheduler,
		fs:              fs,
		now:             now,
		refreshInterval: refresh,
		bellEnabled:     cfg.BellEnabled,
		fb:              &formBindings{},
		keys:            newKeyMap(),
		help:            help.New(),
		lastEvents:      make(map[string]scheduler.Event),
	}
	if cfg.Notice != "" {
		m.setStatus(cfg.Notice, statusError)
	}
	return m
}

// Init satisfies the tea.Model interface.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.scheduleRefresh()}
	if m.scheduler != nil {
		cmds = append(cmds, m.scheduler.WaitForEvent())
	}
	return tea.Batch(cmds...)
}

// Update drives the Bubble Tea state machine.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m.maybeExpireStatus()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.configureLayout()
		if m.form != nil {
			m.form = m.form.WithWidth(m.formWidth())
		}
	case scheduler.Event:
		cmd := m.absorbEvent(msg)
		if m.scheduler != nil {
			cmd = tea.Batch(cmd, m.scheduler.WaitForEvent())
		}
		return m, cmd
	case firedMsg:
		m.firing = false
		return m, m.absorbEvent(msg.Event)
	case refreshTickMsg:
		m.ensureSelectionBounds()
		return m, m.scheduleRefresh()
	}

	if m.mode != modeList {
		if k, ok := msg.(tea.KeyMsg); ok {
			switch k.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "esc":
				m.closeForm()
				m.setStatus("Cancelled", statusNeutral)
				return m, nil
			}
		}
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tea.MouseMsg:
		return m.handleMouse(msg)
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// View renders the TUI.
func (m *Model) View() string {
	return renderView(m)
}

func (m *Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.MouseLeft:
		if m.listArea.contains(msg.Y) {
			row := msg.Y - m.listArea.top
			if row <= 0 {
				return m, nil
			}
			index := m.scrollOffset + row - 1
			if index >= 0 && index < m.service.Catalog().Len() {
				m.selectedIndex = index
				m.ensureSelectionBounds()
			}
		}
	case tea.MouseWheelUp:
		m.moveSelection(-1)
	case tea.MouseWheelDown:
		m.moveSelection(1)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Down):
		m.moveSelection(1)
	case key.Matches(msg, m.keys.Up):
		m.moveSelection(-1)
	case key.Matches(msg, m.keys.Top):
		m.selectedIndex = 0
		m.scrollOffset = 0
	case key.Matches(msg, m.keys.Bottom):
		m.selectedIndex = max(0, m.service.Catalog().Len()-1)
		m.ensureSelectionBounds()
	case key.Matches(msg, m.keys.New):
		return m, m.startCreate()
	case key.Matches(msg, m.keys.Edit):
		if r, ok := m.selectedRecord(); ok {
			return m, m.startEdit(r)
		}
	case key.Matches(msg, m.keys.Delete):
		if r, ok := m.selectedRecord(); ok {
			return m, m.startDelete(r)
		}
	case key.Matches(msg, m.keys.Fire):
		return m, m.fireSelected()
	case key.Matches(msg, m.keys.Bell):
		m.bellEnabled = !m.bellEnabled
		if m.bellEnabled {
			m.setStatus("Bell enabled", statusSuccess)
		} else {
			m.setStatus("Bell muted", statusNeutral)
		}
	}
	return m, nil
}

func (m *Model) fireSelected() tea.Cmd {
	r, ok := m.selectedRecord()
	if !ok || m.scheduler == nil {
		return nil
	}
	if m.firing {
		m.setStatus("Still sending the previous notification…", statusNeutral)
		return nil
	}
	m.firing = true
	m.setStatus(fmt.Sprintf("Sending %q…", r.Title), statusNeutral)
	return fireCmd(m.scheduler, r)
}

// absorbEvent records the outcome of a delivery and reports it.
func (m *Model) absorbEvent(ev scheduler.Event) tea.Cmd {
	m.lastEvents[ev.Record.ID] = ev
	if ev.Err != nil {
		m.setStatus(fmt.Sprintf("%q failed: %v", ev.Record.Title, ev.Err), statusError)
		return nil
	}
	m.setStatus(fmt.Sprintf("%s %s: %s (via %s)", ev.At.Format("15:04"), ev.Record.Title, ev.Record.Message, ev.Backend), statusSuccess)
	if m.bellEnabled {
		return tea.Printf("\a")
	}
	return nil
}

func (m *Model) selectedRecord() (reminder.Record, bool) {
	n := m.service.Catalog().Len()
	if n == 0 {
		return reminder.Record{}, false
	}
	if m.selectedIndex < 0 {
		m.selectedIndex = 0
	}
	if m.selectedIndex >= n {
		m.selectedIndex = n - 1
	}
	return m.service.Catalog().At(m.selectedIndex)
}

func (m *Model) selectID(id string) {
	for i, rid := range m.service.Catalog().IDs() {
		if rid == id {
			m.selectedIndex = i
			m.ensureSelectionBounds()
			return
		}
	}
}

func (m *Model) moveSelection(delta int) {
	n := m.service.Catalog().Len()
	if n == 0 {
		m.selectedIndex = 0
		m.scrollOffset = 0
		return
	}
	m.selectedIndex += delta
	if m.selectedIndex < 0 {
		m.selectedIndex = 0
	}
	if m.selectedIndex >= n {
		m.selectedIndex = n - 1
	}
	m.ensureSelectionBounds()
}

func (m *Model) ensureSelectionBounds() {
	n := m.service.Catalog().Len()
	if m.selectedIndex >= n {
		m.selectedIndex = max(0, n-1)
	}
	dataRows := m.dataRows()
	if m.selectedIndex < m.scrollOffset {
		m.scrollOffset = m.selectedIndex
	}
	if m.selectedIndex >= m.scrollOffset+dataRows {
		m.scrollOffset = m.selectedIndex - dataRows + 1
	}
	maxScroll := max(0, n-dataRows)
	if m.scrollOffset > maxScroll {
		m.scrollOffset = maxScroll
	}
	if m.scrollOffset < 0 {
		m.scrollOffset = 0
	}
}

func (m *Model) dataRows() int {
	rows := m.listArea.height - 1 // header consumes one row
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (m *Model) configureLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	const (
		titleHeight  = 1
		helpHeight   = 1
		statusHeight = 1
	)
	listHeight := m.height - (titleHeight + helpHeight + statusHeight)
	if listHeight < 3 {
		listHeight = 3
	}
	m.listArea = area{
		top:    titleHeight + helpHeight,
		height: listHeight,
	}
	m.help.Width = m.width
	m.ensureSelectionBounds()
}

func (m *Model) scheduleRefresh() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(time.Time) tea.Msg {
		return refreshTickMsg{}
	})
}

func (m *Model) setStatus(text string, kind statusKind) {
	if text == "" {
		m.status = statusMessage{}
		return
	}
	m.status = statusMessage{
		text:    text,
		kind:    kind,
		expires: m.now().Add(10 * time.Second),
	}
}

func (m *Model) maybeExpireStatus() {
	if m.status.text == "" {
		return
	}
	if m.now().After(m.status.expires) {
		m.status = statusMessage{}
	}
}

func (a area) contains(y int) bool {
	return y >= a.top && y < a.top+a.height
}

type refreshTickMsg struct{}

type firedMsg struct {
	Event scheduler.Event
}

func fireCmd(s Firer, r reminder.Record) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return firedMsg{Event: s.Fire(ctx, r)}
	}
}
