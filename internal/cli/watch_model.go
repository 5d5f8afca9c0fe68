package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexanderramin/tempus/internal/cli/formatter"
	"github.com/alexanderramin/tempus/internal/contract"
	"github.com/alexanderramin/tempus/internal/domain"
)

const (
	watchRefresh  = 100 * time.Millisecond
	maxNoticeRows = 3
	noticeTTL     = 8 * time.Second
)

type watchKeyMap struct {
	Stopwatch key.Binding
	Lap       key.Binding
	Reset     key.Binding
	Pomodoro  key.Binding
	Skip      key.Binding
	Quit      key.Binding
}

func newWatchKeyMap() watchKeyMap {
	return watchKeyMap{
		Stopwatch: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "start/pause stopwatch")),
		Lap:       key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "lap")),
		Reset:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset stopwatch")),
		Pomodoro:  key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "start/stop pomodoro")),
		Skip:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "skip phase")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

type shownNotice struct {
	text string
	at   time.Time
}

// watchModel renders the latest projection and translates keys into
// backend requests. It never mutates derived state itself.
type watchModel struct {
	app  *App
	keys watchKeyMap
	cfg  domain.PomodoroConfig

	proj    contract.Projection
	notices []shownNotice
	lastErr string
	width   int
}

func newWatchModel(app *App) watchModel {
	return watchModel{
		app:  app,
		keys: newWatchKeyMap(),
		cfg:  app.Backend.Config(),
		proj: app.Controller.Projection(),
	}
}

type refreshMsg time.Time

func refreshTick() tea.Cmd {
	return tea.Tick(watchRefresh, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

type actionErrMsg struct{ err error }

func requestCmd(fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(context.Background()); err != nil {
			return actionErrMsg{err: err}
		}
		return nil
	}
}

func (m watchModel) Init() tea.Cmd {
	return refreshTick()
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case refreshMsg:
		m.proj = m.app.Controller.Projection()
		now := time.Time(msg)
		for _, n := range m.proj.Notices {
			m.notices = append(m.notices, shownNotice{text: noticeText(n), at: now})
		}
		m.notices = pruneNotices(m.notices, now)
		return m, refreshTick()

	case actionErrMsg:
		m.lastErr = msg.err.Error()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m watchModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.lastErr = ""
	c := m.app.Controller

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Stopwatch):
		switch m.proj.Stopwatch.Status {
		case domain.IntervalRunning:
			return m, requestCmd(c.PauseStopwatch)
		case domain.IntervalPaused:
			return m, requestCmd(c.ResumeStopwatch)
		default:
			return m, requestCmd(c.StartStopwatch)
		}

	case key.Matches(msg, m.keys.Lap):
		label := fmt.Sprintf("lap %d", len(m.proj.Stopwatch.Laps)+1)
		return m, requestCmd(func(ctx context.Context) error {
			return c.LapStopwatch(ctx, label)
		})

	case key.Matches(msg, m.keys.Reset):
		return m, requestCmd(c.ResetStopwatch)

	case key.Matches(msg, m.keys.Pomodoro):
		if m.proj.Pomodoro.Phase == domain.PhaseIdle {
			return m, requestCmd(c.StartPomodoro)
		}
		return m, requestCmd(c.StopPomodoro)

	case key.Matches(msg, m.keys.Skip):
		return m, requestCmd(c.SkipPhase)
	}
	return m, nil
}

func (m watchModel) View() string {
	var b strings.Builder

	b.WriteString(formatter.Header("Tempus"))
	b.WriteString("\n\n")

	m.viewPomodoro(&b)
	m.viewStopwatch(&b)
	m.viewTimers(&b)
	m.viewAlarms(&b)

	for _, n := range m.notices {
		b.WriteString(formatter.StyleYellow.Render("! "+n.text) + "\n")
	}
	if m.lastErr != "" {
		b.WriteString(formatter.StyleRed.Render("error: "+m.lastErr) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(formatter.Dim(m.helpLine()))
	return b.String()
}

func (m watchModel) viewPomodoro(b *strings.Builder) {
	p := m.proj.Pomodoro
	b.WriteString(formatter.PhaseIndicator(p.Phase))
	if p.Phase != domain.PhaseIdle {
		total := m.phaseTotal(p.Phase)
		b.WriteString("  " + formatter.PhaseProgress(p.Phase, p.RemainingMillis, total.Milliseconds(), 20))
		b.WriteString(formatter.Dim(fmt.Sprintf("  session %d · cycle %d", p.SessionIndex, p.CycleIndex)))
		if p.IsLongBreakNext {
			b.WriteString("  " + formatter.StyleBlue.Render("long break next"))
		}
	}
	b.WriteString("\n\n")
}

func (m watchModel) viewStopwatch(b *strings.Builder) {
	w := m.proj.Stopwatch
	b.WriteString(formatter.Bold(formatter.Millis(w.ElapsedMillis)))
	switch w.Status {
	case domain.IntervalRunning:
		b.WriteString("  " + formatter.StyleGreen.Render("running"))
	case domain.IntervalPaused:
		b.WriteString("  " + formatter.StyleYellow.Render("paused"))
	default:
		b.WriteString("  " + formatter.Dim("stopwatch"))
	}
	b.WriteString("\n")
	if len(w.Laps) > 0 {
		laps := w.Laps
		if len(laps) > 5 {
			laps = laps[len(laps)-5:]
		}
		b.WriteString(formatter.Dim(formatter.LapTable(laps)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func (m watchModel) viewTimers(b *strings.Builder) {
	if len(m.proj.Timers) == 0 {
		return
	}
	for _, t := range m.proj.Timers {
		line := formatter.Bold(formatter.Duration(t.RemainingMillis))
		if t.Label != "" {
			line += "  " + t.Label
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")
}

func (m watchModel) viewAlarms(b *strings.Builder) {
	if len(m.proj.Alarms) == 0 {
		return
	}
	for _, a := range m.proj.Alarms {
		clock := formatter.Clock(a.Time, m.app.Use24h)
		if !a.Enabled {
			b.WriteString(formatter.Dim(fmt.Sprintf("%s  %s (off)", clock, a.Label)) + "\n")
			continue
		}
		line := fmt.Sprintf("%s  %s", formatter.Bold(clock), a.Label)
		if a.Snoozed {
			line += "  " + formatter.StyleYellow.Render("snoozed")
		}
		if a.NextText != "" {
			line += "  " + formatter.Dim(a.NextText)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")
}

func (m watchModel) phaseTotal(phase domain.Phase) time.Duration {
	switch phase {
	case domain.PhaseWork:
		return m.cfg.WorkDuration
	case domain.PhaseShortBreak:
		return m.cfg.ShortBreakDuration
	case domain.PhaseLongBreak:
		return m.cfg.LongBreakDuration
	default:
		return 0
	}
}

func (m watchModel) helpLine() string {
	bindings := []key.Binding{
		m.keys.Stopwatch, m.keys.Lap, m.keys.Reset,
		m.keys.Pomodoro, m.keys.Skip, m.keys.Quit,
	}
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " · ")
}

func noticeText(n contract.Notice) string {
	switch n.Kind {
	case contract.NoticeTriggerFired:
		if n.Label != "" {
			return "went off: " + n.Label
		}
		return "went off"
	case contract.NoticeLapCapacityReached:
		return "lap list full, oldest lap dropped"
	case contract.NoticeAutoResetTriggered:
		return "stopwatch hit the runtime ceiling and reset"
	case contract.NoticePhaseMissed:
		return "a pomodoro phase ended while the system was asleep"
	default:
		return string(n.Kind)
	}
}

func pruneNotices(notices []shownNotice, now time.Time) []shownNotice {
	kept := notices[:0]
	for _, n := range notices {
		if now.Sub(n.at) < noticeTTL {
			kept = append(kept, n)
		}
	}
	if len(kept) > maxNoticeRows {
		kept = kept[len(kept)-maxNoticeRows:]
	}
	return kept
}
