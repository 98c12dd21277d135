package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/trendrank/internal/formatter"
	"github.com/desertthunder/trendrank/internal/repositories"
	"github.com/desertthunder/trendrank/internal/shared"
	"github.com/desertthunder/trendrank/internal/ui"
	"github.com/urfave/cli/v3"
)

var uiBoards = map[ui.BoardKind]string{
	ui.DailyBoard:      boardDaily,
	ui.CumulativeBoard: boardCumulative,
	ui.WeeklyBoard:     boardWeekly,
}

// boardLoader adapts the stored boards to the UI's loader.
func boardLoader(store *repositories.Store) ui.Loader {
	sources := boardSources(store)
	return func(ctx context.Context, kind ui.BoardKind, date string) (formatter.Board, error) {
		name, ok := uiBoards[kind]
		if !ok {
			return formatter.Board{}, fmt.Errorf("%w: unknown board %v", shared.ErrInvalidArgument, kind)
		}
		return sources[name].build(ctx, date, 0)
	}
}

// View launches the interactive leaderboard browser.
func (r *Runner) View(ctx context.Context, cmd *cli.Command) error {
	store, err := r.Store()
	if err != nil {
		return err
	}

	dates, err := r.latestDates(ctx, store, cmd.String("date"))
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	model := ui.NewModel(ctx, boardLoader(store), map[ui.BoardKind]string{
		ui.DailyBoard:      dates[boardDaily],
		ui.CumulativeBoard: dates[boardCumulative],
		ui.WeeklyBoard:     dates[boardWeekly],
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
