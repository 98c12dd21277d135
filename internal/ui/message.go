package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/trendrank/internal/formatter"
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
	MsgBoardLoaded MsgKind = iota
)

type boardResult struct {
	kind  BoardKind
	date  string
	board formatter.Board
	err   error
}

// boardLoadedMsg is the constructor for [MsgBoardLoaded]
func boardLoadedMsg(kind BoardKind, date string, board formatter.Board, err error) Msg {
	return Msg{
		kind: MsgBoardLoaded,
		data: boardResult{kind: kind, date: date, board: board, err: err},
	}
}
