package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/teemow/groupcal/internal/config"
	"github.com/teemow/groupcal/internal/logging"
	"github.com/teemow/groupcal/internal/tui"
)

func newTUICmd() *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive calendar",
		Long: `Open the group calendar in a full-screen terminal view.

The log is written to $XDG_STATE_HOME/groupcal/groupcal.log while the
calendar owns the screen.

Keys:
  h/l, j/k      move by day / week       tab   switch month, week, day
  < / >         previous / next month    t     today
  [ / ]         select event             r     refresh
  n             new event                enter edit selected event
  d             delete selected event    esc   dismiss message
  L / O         sign in / sign out       q     quit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(title)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Header shown above the calendar")

	return cmd
}

func runTUI(title string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logFile, err := logging.OpenStateFile(config.AppName)
	if err != nil {
		return err
	}
	defer logFile.Close()

	a, err := newApp(appOptions{logOut: logFile})
	if err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "starting terminal calendar", slog.String("version", version))

	model := tui.New(ctx, a.ctrl, a.session, tui.Options{Title: title})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("terminal calendar stopped: %w", err)
	}
	return nil
}
