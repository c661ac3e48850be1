// Package ui is a compact terminal status view over the usage store.
// It is a pure consumer: it reads account views and subscribes to the
// change stream, never touching engine internals.
package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Kabilan108/claude-bar/internal/poll"
	"github.com/Kabilan108/claude-bar/internal/store"
)

// TickMsg redraws countdowns once a second.
type TickMsg time.Time

// changeMsg carries one store change event.
type changeMsg store.Event

type App struct {
	store *store.Store
	sched *poll.Scheduler

	events <-chan store.Event
	cancel func()

	views    []store.AccountView
	lastNote string

	width  int
	height int
}

func NewApp(st *store.Store, sched *poll.Scheduler) *App {
	events, cancel := st.Subscribe()
	return &App{
		store:  st,
		sched:  sched,
		events: events,
		cancel: cancel,
		views:  st.Views(),
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("claude-bar"),
		a.waitForChange(),
		doTick(),
	)
}

func doTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// waitForChange blocks on the subscription channel. Dropped events are
// fine: the next one triggers a full re-read of the store.
func (a *App) waitForChange() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-a.events
		if !ok {
			return nil
		}
		return changeMsg(ev)
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case TickMsg:
		return a, doTick()

	case changeMsg:
		a.views = a.store.Views()
		if msg.Kind == store.ErrorOccurred || msg.Kind == store.ErrorCleared {
			a.lastNote = ""
		}
		return a, a.waitForChange()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			a.cancel()
			return a, tea.Quit
		case "r":
			a.sched.TriggerRefreshAll()
			a.lastNote = "refresh requested"
		}
	}
	return a, nil
}
