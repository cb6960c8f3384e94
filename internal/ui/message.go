package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/snooze/internal/lifecycle"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgStartupComplete MsgKind = iota
	MsgEvent
	MsgEventsClosed
	MsgActionDone
)

// startupCompleteMsg is the constructor for [MsgStartupComplete]
func startupCompleteMsg(err error) Msg {
	return Msg{kind: MsgStartupComplete, data: err}
}

// eventMsg is the constructor for [MsgEvent]
func eventMsg(ev lifecycle.Event) Msg {
	return Msg{kind: MsgEvent, data: ev}
}

// eventsClosedMsg is the constructor for [MsgEventsClosed]
func eventsClosedMsg() Msg {
	return Msg{kind: MsgEventsClosed}
}

// actionDoneMsg is the constructor for [MsgActionDone]
func actionDoneMsg(action string, err error) Msg {
	return Msg{
		kind: MsgActionDone,
		data: actionResult{action: action, err: err},
	}
}

type actionResult struct {
	action string
	err    error
}

func (m Msg) err() error {
	switch d := m.data.(type) {
	case error:
		return d
	case actionResult:
		return d.err
	}
	return nil
}
