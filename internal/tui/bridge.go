package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pbiembed/pbiembed/internal/selection"
	"github.com/pbiembed/pbiembed/internal/webpart"
)

type optionsMsg struct{ snap selection.Snapshot }

type busyMsg struct{ text string }

type idleMsg struct{}

type viewMsg struct{ view webpart.View }

// Bridge carries selection-machine and renderer callbacks, which arrive on
// fetch goroutines, into the bubbletea update loop. Hand Surface() and
// Renderer() to webpart.New.
type Bridge struct {
	events chan tea.Msg
	done   chan struct{}
	once   sync.Once
}

func NewBridge() *Bridge {
	return &Bridge{
		events: make(chan tea.Msg, 64),
		done:   make(chan struct{}),
	}
}

func (b *Bridge) send(msg tea.Msg) {
	select {
	case b.events <- msg:
	case <-b.done:
	}
}

// Close drops any later events.
func (b *Bridge) Close() {
	b.once.Do(func() { close(b.done) })
}

// listen waits for the next event; the model re-arms it after each one.
func (b *Bridge) listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-b.events:
			return msg
		case <-b.done:
			return nil
		}
	}
}

func (b *Bridge) Surface() selection.Observer { return surface{b} }

func (b *Bridge) Renderer() webpart.Renderer {
	return webpart.RendererFunc(func(v webpart.View) { b.send(viewMsg{view: v}) })
}

type surface struct{ b *Bridge }

func (s surface) OptionsChanged(snap selection.Snapshot) { s.b.send(optionsMsg{snap: snap}) }
func (s surface) Busy(text string)                       { s.b.send(busyMsg{text: text}) }
func (s surface) Idle()                                  { s.b.send(idleMsg{}) }

// Render is dropped; the web part follows it with a full View.
func (s surface) Render(selection.Snapshot) {}
