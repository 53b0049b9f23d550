package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/groupcal/internal/calendar"
	"github.com/teemow/groupcal/internal/export"
	"github.com/teemow/groupcal/internal/form"
	"github.com/teemow/groupcal/internal/syncer"
	"github.com/teemow/groupcal/internal/view"
)

const dateLayout = "2006-01-02"

func newEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List, create, update, delete and export group calendar events",
	}
	cmd.AddCommand(newEventsListCmd())
	cmd.AddCommand(newEventsCreateCmd())
	cmd.AddCommand(newEventsUpdateCmd())
	cmd.AddCommand(newEventsDeleteCmd())
	cmd.AddCommand(newEventsExportCmd())
	return cmd
}

// withApp wires the application with logs on stderr, signs in and loads the
// month containing date (YYYY-MM-DD, empty for today).
func withApp(cmd *cobra.Command, date string, fn func(ctx context.Context, a *app, anchor time.Time) error) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(appOptions{logOut: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	anchor, err := parseDate(date, a.ctrl.Now(), a.ctrl.Location())
	if err != nil {
		return err
	}
	if _, err := a.signedIn(ctx); err != nil {
		return fmt.Errorf("sign-in failed: %w", err)
	}
	if snap, err := a.ctrl.Load(ctx, anchor); err != nil {
		return errors.New(snapshotMessage(snap, err))
	}
	return fn(ctx, a, anchor)
}

func parseDate(s string, now time.Time, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return now.In(loc), nil
	}
	t, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

func snapshotMessage(snap syncer.Snapshot, err error) string {
	if snap.Error != "" {
		return snap.Error
	}
	return err.Error()
}

func requireElevated(snap syncer.Snapshot) error {
	if !snap.Elevated {
		return errors.New("you do not have permission to edit events in this calendar")
	}
	return nil
}

func findEvent(events []calendar.Event, id string) (calendar.Event, bool) {
	for _, ev := range events {
		if ev.ID == id {
			return ev, true
		}
	}
	return calendar.Event{}, false
}

func newEventsListCmd() *cobra.Command {
	var (
		mode string
		date string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events of a month, week or day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, ok := view.ParseMode(mode)
			if !ok {
				return fmt.Errorf("invalid view %q, expected month, week or day", mode)
			}
			return withApp(cmd, date, func(_ context.Context, a *app, anchor time.Time) error {
				snap := a.ctrl.Snapshot()
				loc := a.ctrl.Location()
				layout := view.BuildLayout(view.Displayable(snap.Events, loc), m, anchor, loc)
				printLayout(cmd.OutOrStdout(), layout)
				if snap.Error != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", snap.Error)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&mode, "view", "month", "Range to list: month, week or day")
	cmd.Flags().StringVar(&date, "date", "", "Day inside the range (YYYY-MM-DD). Defaults to today.")

	return cmd
}

func printLayout(w io.Writer, l view.Layout) {
	fmt.Fprintln(w, l.Title())
	empty := true
	for _, day := range l.Days {
		if !day.InFocus || len(day.Items) == 0 {
			continue
		}
		empty = false
		fmt.Fprintf(w, "\n%s\n", day.Date.Format("Mon Jan 2"))
		for _, it := range day.Items {
			subject := it.Event.Subject
			if subject == "" {
				subject = "(no subject)"
			}
			fmt.Fprintf(w, "  %s-%s  %s", it.Start.Format("15:04"), it.End.Format("15:04"), subject)
			if it.Event.Location != "" {
				fmt.Fprintf(w, " @ %s", it.Event.Location)
			}
			fmt.Fprintf(w, "  [%s]\n", it.Event.ID)
		}
	}
	if empty {
		fmt.Fprintln(w, "No events")
	}
}

// eventFlags are the editable fields shared by create and update.
type eventFlags struct {
	subject   string
	start     string
	end       string
	location  string
	attendees string
	body      string
	online    bool
}

func (f *eventFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.subject, "subject", "", "Event subject")
	cmd.Flags().StringVar(&f.start, "start", "", "Start time (YYYY-MM-DDTHH:MM) in the calendar time zone")
	cmd.Flags().StringVar(&f.end, "end", "", "End time (YYYY-MM-DDTHH:MM) in the calendar time zone")
	cmd.Flags().StringVar(&f.location, "location", "", "Event location")
	cmd.Flags().StringVar(&f.attendees, "attendees", "", "Comma-separated attendee email addresses")
	cmd.Flags().StringVar(&f.body, "body", "", "Plain text description")
	cmd.Flags().BoolVar(&f.online, "online", false, "Create an online meeting")
}

// apply copies the flags the user set onto st.
func (f *eventFlags) apply(cmd *cobra.Command, st *form.State) {
	set := []struct {
		name  string
		field form.Field
		value string
	}{
		{"subject", form.FieldSubject, f.subject},
		{"start", form.FieldStart, f.start},
		{"end", form.FieldEnd, f.end},
		{"location", form.FieldLocation, f.location},
		{"attendees", form.FieldAttendees, f.attendees},
		{"body", form.FieldBody, f.body},
	}
	for _, s := range set {
		if cmd.Flags().Changed(s.name) {
			st.Set(s.field, s.value)
		}
	}
	if cmd.Flags().Changed("online") {
		st.IsOnlineMeeting = f.online
	}
}

func saveForm(ctx context.Context, w io.Writer, a *app, st form.State) error {
	ev, err := st.Submit()
	if err != nil {
		return err
	}
	saved, err := a.ctrl.SaveEvent(ctx, ev)
	if err != nil {
		return errors.New(snapshotMessage(a.ctrl.Snapshot(), err))
	}
	verb := "Created"
	if st.Persisted() {
		verb = "Updated"
	}
	fmt.Fprintf(w, "%s event %s (%s)\n", verb, saved.ID, saved.Subject)
	return nil
}

func newEventsCreateCmd() *cobra.Command {
	var ef eventFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an event (defaults to now until one hour from now)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, "", func(ctx context.Context, a *app, _ time.Time) error {
				if err := requireElevated(a.ctrl.Snapshot()); err != nil {
					return err
				}
				now := a.ctrl.Now().Truncate(time.Minute)
				st := form.State{
					Start:    now.Format(calendar.FormLayout),
					End:      now.Add(time.Hour).Format(calendar.FormLayout),
					TimeZone: a.ctrl.TimeZone(),
					IsNew:    true,
				}
				ef.apply(cmd, &st)
				return saveForm(ctx, cmd.OutOrStdout(), a, st)
			})
		},
	}
	ef.register(cmd)

	return cmd
}

func newEventsUpdateCmd() *cobra.Command {
	var (
		ef   eventFlags
		date string
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an event; only the given fields change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, date, func(ctx context.Context, a *app, anchor time.Time) error {
				snap := a.ctrl.Snapshot()
				if err := requireElevated(snap); err != nil {
					return err
				}
				ev, ok := findEvent(snap.Events, args[0])
				if !ok {
					return fmt.Errorf("event %s not found in %s; use --date to pick its month", args[0], anchor.Format("January 2006"))
				}
				st := form.FromEvent(ev)
				ef.apply(cmd, &st)
				return saveForm(ctx, cmd.OutOrStdout(), a, st)
			})
		},
	}
	ef.register(cmd)
	cmd.Flags().StringVar(&date, "date", "", "Day inside the event's month (YYYY-MM-DD). Defaults to today.")

	return cmd
}

func newEventsDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, "", func(ctx context.Context, a *app, _ time.Time) error {
				if err := requireElevated(a.ctrl.Snapshot()); err != nil {
					return err
				}
				confirm := func(prompt string) bool {
					if yes {
						return true
					}
					return promptYesNo(cmd.InOrStdin(), cmd.ErrOrStderr(), prompt)
				}
				id, ok := form.ConfirmDelete(form.State{ID: args[0]}, confirm)
				if !ok {
					fmt.Fprintln(cmd.ErrOrStderr(), "Aborted")
					return nil
				}
				if err := a.ctrl.DeleteEvent(ctx, id); err != nil {
					return errors.New(snapshotMessage(a.ctrl.Snapshot(), err))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted event %s\n", id)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	return cmd
}

// promptYesNo asks prompt on w and reads the answer from r. Anything other
// than y or yes is a no.
func promptYesNo(r io.Reader, w io.Writer, prompt string) bool {
	fmt.Fprintf(w, "%s [y/N] ", prompt)
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func newEventsExportCmd() *cobra.Command {
	var (
		date   string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a month as an iCalendar file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, date, func(ctx context.Context, a *app, _ time.Time) error {
				snap := a.ctrl.Snapshot()
				w := cmd.OutOrStdout()
				if output != "" {
					f, err := os.Create(output)
					if err != nil {
						return fmt.Errorf("failed to create %s: %w", output, err)
					}
					defer f.Close()
					w = f
				}
				skipped, err := export.Write(w, snap.Events, export.Options{
					Location: a.ctrl.Location(),
					Name:     "Group calendar " + snap.Window.Start.Format("January 2006"),
				})
				if err != nil {
					return err
				}
				if skipped > 0 {
					a.logger.WarnContext(ctx, "events skipped during export", "skipped", skipped)
				}
				if output != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d events to %s\n", len(snap.Events)-skipped, output)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Day inside the month to export (YYYY-MM-DD). Defaults to today.")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")

	return cmd
}
