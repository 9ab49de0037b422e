package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"onboarding-hub/internal/domain"
	"onboarding-hub/internal/schedule"
)

func followCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "follow",
		Short: "Stream live updates from the server until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			updates := make(chan domain.SharedDocument, 16)

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				defer close(updates)
				err := a.replica.Follow(ctx, func(doc domain.SharedDocument) {
					select {
					case updates <- doc:
					case <-ctx.Done():
					}
				})
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
			g.Go(func() error {
				for doc := range updates {
					fmt.Fprintf(out, "%s  updated by %s: %d completed\n",
						time.UnixMilli(doc.LastUpdated).Format(time.DateTime),
						displayName(doc.UserName),
						len(doc.CompletedTasks),
					)
				}
				return nil
			})
			return g.Wait()
		},
	}
}

func statusCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show progress and comments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			week, _ := cmd.Flags().GetInt("week")
			printStatus(cmd.OutOrStdout(), a, week)
			return nil
		},
	}
	cmd.Flags().IntP("week", "w", -1, "Only show this week (0-based)")
	return cmd
}

func printStatus(out io.Writer, a *app, only int) {
	doc := a.replica.Snapshot()
	fmt.Fprintf(out, "User:         %s\n", displayName(doc.UserName))
	if doc.LastUpdated > 0 {
		fmt.Fprintf(out, "Last updated: %s\n", time.UnixMilli(doc.LastUpdated).Format(time.DateTime))
	}
	if doc.Schedule == nil {
		fmt.Fprintln(out, "No schedule yet")
		return
	}

	for i, w := range doc.Schedule {
		if only >= 0 && i != only {
			continue
		}
		p := a.replica.Progress(i)
		fmt.Fprintf(out, "\n[%d] %s %s  %d/%d (%d%%)\n", i, w.Title, w.DateRange, p.Completed, p.Total, p.Percentage)
		for _, c := range doc.WeeklyComments[strconv.Itoa(i)] {
			fmt.Fprintf(out, "    %s  %s: %s\n", c.ID, c.Author, c.Text)
		}
	}

	// comment threads for weeks the schedule does not have
	var orphans []string
	for key := range doc.WeeklyComments {
		if n, err := strconv.Atoi(key); err != nil || n >= len(doc.Schedule) {
			orphans = append(orphans, key)
		}
	}
	sort.Strings(orphans)
	for _, key := range orphans {
		fmt.Fprintf(out, "\n[%s] (not in schedule) %d comments\n", key, len(doc.WeeklyComments[key]))
	}
}

func toggleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <week-day-am|pm-task>",
		Short: "Mark a task done or not done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := schedule.ParseKey(args[0])
			if err != nil {
				return err
			}
			state := "not done"
			if a.replica.ToggleTask(slot) {
				state = "done"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s marked %s\n", slot.Key(), state)
			return nil
		},
	}
}

func taskCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Add, edit or remove tasks",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <week> <day> <am|pm>",
		Short: "Append a new task to a list",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			week, day, err := parseWeekDay(args[0], args[1])
			if err != nil {
				return err
			}
			session, err := schedule.ParseSession(args[2])
			if err != nil {
				return err
			}
			return a.replica.AddTask(week, day, session)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "edit <week-day-am|pm-task> <text>",
		Short: "Replace the text of a task",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := schedule.ParseKey(args[0])
			if err != nil {
				return err
			}
			return a.replica.UpdateTask(slot, strings.Join(args[1:], " "))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <week-day-am|pm-task>",
		Short: "Delete a task; later tasks in the list move up one slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := schedule.ParseKey(args[0])
			if err != nil {
				return err
			}
			return a.replica.DeleteTask(slot)
		},
	})

	return cmd
}

func commentCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "comment <week> <text>",
		Short: "Post a comment on a week",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			week, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid week %q", args[0])
			}
			c := a.replica.AddComment(week, strings.Join(args[1:], " "))
			fmt.Fprintln(cmd.OutOrStdout(), c.ID)
			return nil
		},
	}
}

func uncommentCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "uncomment <week> <id>",
		Short: "Delete a comment by id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			week, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid week %q", args[0])
			}
			a.replica.DeleteComment(week, args[1])
			return nil
		},
	}
}

func nameCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "name <display name>",
		Short: "Set the name shown on your edits",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.replica.SetUserName(strings.Join(args, " "))
			return nil
		},
	}
}

func shareCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "share [base-url]",
		Short: "Print a link that carries the schedule, completions and comments",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base := a.server + "/"
			if len(args) == 1 {
				base = args[0]
			}
			link, err := a.replica.ShareLink(base)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), link)
			return nil
		},
	}
}

func parseWeekDay(weekArg, dayArg string) (int, int, error) {
	week, err := strconv.Atoi(weekArg)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid week %q", weekArg)
	}
	day, err := strconv.Atoi(dayArg)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid day %q", dayArg)
	}
	return week, day, nil
}

func displayName(name string) string {
	if name == "" {
		return "(anonymous)"
	}
	return name
}
