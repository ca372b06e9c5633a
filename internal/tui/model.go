// Package tui provides the Bubble Tea reading interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/verte-zerg/readaloud/internal/model"
	"github.com/verte-zerg/readaloud/internal/session"
	"github.com/verte-zerg/readaloud/internal/speech"
)

// Controller is the session surface the UI drives.
type Controller interface {
	Start(ctx context.Context) error
	Stop() error
	Reset()
	NextText() error
	PrevText() error
	SetLevel(level model.Difficulty) error
	Snapshot() session.Snapshot
}

// Typist accepts typed words in place of speech.
type Typist interface {
	Type(text string) error
	Submit(text string) error
}

var (
	correctStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	cursorStyle      = currentWordStyle.Underline(true)
	partialStyle     = cursorStyle.Faint(true)
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle       = incorrectStyle
)

var encouragements = []string{
	"Great reading!",
	"Well done, keep going!",
	"You read that beautifully.",
	"Fantastic work!",
}

type changedMsg struct{}

type startedMsg struct{ err error }

// Watcher coalesces session change notifications into UI refreshes.
// Pass Notify to session.OnChange.
type Watcher struct {
	ch chan struct{}
}

// NewWatcher returns a Watcher with a single pending slot.
func NewWatcher() *Watcher {
	return &Watcher{ch: make(chan struct{}, 1)}
}

// Notify records that the session changed. It never blocks.
func (w *Watcher) Notify(session.Snapshot) {
	select {
	case w.ch <- struct{}{}:
	default:
	}
}

func (w *Watcher) wait() tea.Cmd {
	return func() tea.Msg {
		<-w.ch
		return changedMsg{}
	}
}

// Model implements the Bubble Tea reading UI.
type Model struct {
	ctx     context.Context
	ctrl    Controller
	typist  Typist
	watcher *Watcher
	logger  *zap.Logger

	width  int
	height int

	snap   session.Snapshot
	bar    progress.Model
	input  textinput.Model
	notice string
}

// NewModel constructs a reading TUI model. typist may be nil when transcripts
// come from an external recognizer.
func NewModel(ctx context.Context, ctrl Controller, typist Typist, watcher *Watcher, logger *zap.Logger) *Model {
	if logger == nil {
		logger = zap.NewNop()
	}
	if watcher == nil {
		watcher = NewWatcher()
	}
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "type what you read"
	input.Focus()

	return &Model{
		ctx:     ctx,
		ctrl:    ctrl,
		typist:  typist,
		watcher: watcher,
		logger:  logger.Named("tui"),
		snap:    ctrl.Snapshot(),
		bar:     progress.New(progress.WithSolidFill("#C89A3A"), progress.WithoutPercentage()),
		input:   input,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.watcher.wait(), m.startCmd()}
	if m.typist != nil {
		cmds = append(cmds, textinput.Blink)
	}
	return tea.Batch(cmds...)
}

func (m *Model) startCmd() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return startedMsg{err: ctrl.Start(ctx)}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = m.contentWidth()
		return m, nil
	case changedMsg:
		m.refresh()
		return m, m.watcher.wait()
	case startedMsg:
		if msg.err != nil {
			m.notice = describeError(msg.err)
			m.logger.Warn("start listening failed", zap.Error(msg.err))
		}
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyCtrlR:
		m.ctrl.Reset()
		m.clearInput()
	case tea.KeyCtrlN:
		m.report(m.ctrl.NextText())
		m.clearInput()
	case tea.KeyCtrlP:
		m.report(m.ctrl.PrevText())
		m.clearInput()
	case tea.KeyCtrlL:
		m.report(m.ctrl.SetLevel(m.snap.Level.Next()))
		m.clearInput()
	case tea.KeyCtrlS:
		if m.snap.State.Active() {
			m.report(m.ctrl.Stop())
			m.refresh()
			return m, nil
		}
		m.notice = ""
		return m, m.startCmd()
	case tea.KeyEnter:
		if m.typist != nil {
			m.report(m.typist.Submit(m.input.Value()))
			m.clearInput()
		}
	default:
		return m.handleTyping(msg)
	}
	m.refresh()
	return m, nil
}

func (m *Model) handleTyping(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.typist == nil {
		return m, nil
	}
	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if value := m.input.Value(); value != before && strings.TrimSpace(value) != "" {
		m.report(m.typist.Type(value))
	}
	return m, cmd
}

func (m *Model) clearInput() {
	m.input.Reset()
}

func (m *Model) report(err error) {
	if err == nil {
		m.notice = ""
		return
	}
	m.notice = describeError(err)
	m.logger.Debug("command failed", zap.Error(err))
}

func (m *Model) refresh() {
	m.snap = m.ctrl.Snapshot()
}

func describeError(err error) string {
	switch {
	case errors.Is(err, speech.ErrNotStarted):
		return "not listening, press ctrl+s"
	case errors.Is(err, session.ErrRestartLimit):
		return "capture keeps stopping, press ctrl+s to retry"
	}
	switch speech.KindOf(err) {
	case speech.KindPermission:
		return "microphone permission denied"
	case speech.KindUnsupported:
		return "speech capture unavailable: " + err.Error()
	default:
		return err.Error()
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	styled := buildStyledRunes(m.snap.Tokens)
	if m.width == 0 || m.height == 0 {
		return renderStyledRunes(styled)
	}
	contentWidth := m.contentWidth()
	sections := []string{
		m.bar.ViewAs(m.snap.Progress),
		"",
		lipgloss.NewStyle().Width(contentWidth).Render(wrapStyledRunes(styled, contentWidth)),
	}
	if m.snap.Complete && len(m.snap.Tokens) > 0 {
		sections = append(sections, "", correctStyle.Render(encouragement(m.snap.Index)+" ctrl+n for the next text"))
	}
	if m.typist != nil {
		sections = append(sections, "", m.input.View())
	}
	if notice := m.currentNotice(); notice != "" {
		sections = append(sections, "", errorStyle.Render(notice))
	}
	content := lipgloss.JoinVertical(lipgloss.Left, sections...)

	footer := m.renderFooter()
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) contentWidth() int {
	w := int(float64(m.width) * 0.70)
	if w < 1 {
		return 1
	}
	return w
}

func (m *Model) currentNotice() string {
	if m.notice != "" {
		return m.notice
	}
	if m.snap.Err != nil {
		return describeError(m.snap.Err)
	}
	return ""
}

func (m *Model) renderFooter() string {
	level := string(m.snap.Level)
	if m.snap.Custom {
		level += " custom"
	} else if m.snap.Count > 0 {
		level += fmt.Sprintf(" %d/%d", m.snap.Index+1, m.snap.Count)
	}
	segments := []string{
		fmt.Sprintf("Progress %d%%", int(m.snap.Progress*100)),
		fmt.Sprintf("Streak %d (best %d)", m.snap.Streak, m.snap.BestStreak),
		level,
		string(m.snap.State),
	}
	if m.snap.Heard != "" {
		segments = append(segments, fmt.Sprintf("heard %q", m.snap.Heard))
	}
	return footerStyle.Render(strings.Join(segments, " · "))
}

func encouragement(index int) string {
	if index < 0 {
		index = -index
	}
	return encouragements[index%len(encouragements)]
}
