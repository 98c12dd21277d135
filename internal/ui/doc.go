// Package ui implements an interactive leaderboard browser using bubbletea's Elm architecture.
//
// The TUI shows one board at a time:
//  1. [DailyBoard] : ranked score points for a snapshot date
//  2. [CumulativeBoard] : running totals through a date
//  3. [WeeklyBoard] : seven-day totals for the week ending at a date
//
// Boards are read through a [Loader] so the model never touches the store directly.
// Every load runs as a tea.Cmd and answers with a [MsgBoardLoaded] message; a failed load keeps
// the previous board on screen and shows the error in the status line.
//
// Keyboard navigation uses tab/shift+tab to switch boards, h/l (or arrows) to step through dates,
// j/k to scroll and q to quit, with contextual help displayed via charmbracelet/bubbles/help.
package ui
