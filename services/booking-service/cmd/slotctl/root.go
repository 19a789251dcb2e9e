package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/tavolo/tavolo/libs/auth"
	"github.com/tavolo/tavolo/libs/config"
	"github.com/tavolo/tavolo/libs/db"
	"github.com/tavolo/tavolo/services/booking-service/internal/conflicts"
	"github.com/tavolo/tavolo/services/booking-service/internal/model"
	"github.com/tavolo/tavolo/services/booking-service/internal/outbox"
	"github.com/tavolo/tavolo/services/booking-service/internal/schedule"
	"github.com/tavolo/tavolo/services/booking-service/internal/storage"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "slotctl",
		Short:         "Inspect the reservation calendar and manage the booking database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newSlotsCmd())
	root.AddCommand(newEndTimesCmd())
	root.AddCommand(newConflictsCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newTokenCmd())
	return root
}

func newSlotsCmd() *cobra.Command {
	var date string
	c := &cobra.Command{
		Use:   "slots",
		Short: "Print the start times offered on a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := schedule.ParseDate(date)
			if err != nil {
				return fmt.Errorf("invalid --date: %w", err)
			}
			times := schedule.AvailableSlots(d)
			out := cmd.OutOrStdout()
			if len(times) == 0 {
				fmt.Fprintf(out, "%s (%s): closed\n", d, d.Weekday())
				return nil
			}
			fmt.Fprintf(out, "%s (%s): %s\n", d, d.Weekday(), joinClocks(times))
			return nil
		},
	}
	c.Flags().StringVar(&date, "date", "", "day to inspect, YYYY-MM-DD")
	_ = c.MarkFlagRequired("date")
	return c
}

func newEndTimesCmd() *cobra.Command {
	var start string
	c := &cobra.Command{
		Use:   "end-times",
		Short: "Print the end times selectable for a start time",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := schedule.Unset
			if start != "" {
				parsed, err := schedule.ParseClock(start)
				if err != nil {
					return fmt.Errorf("invalid --start: %w", err)
				}
				s = parsed
			}
			times := schedule.ValidEndTimes(s)
			if len(times) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: no valid end times\n", start)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), joinClocks(times))
			return nil
		},
	}
	c.Flags().StringVar(&start, "start", "", "start time HH:MM; empty prints the whole catalog")
	return c
}

func newConflictsCmd() *cobra.Command {
	var (
		date string
		all  bool
	)
	c := &cobra.Command{
		Use:   "conflicts",
		Short: "Print pending reservations on a date with the reservations they overlap",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := schedule.ParseDate(date)
			if err != nil {
				return fmt.Errorf("invalid --date: %w", err)
			}
			ctx := cmd.Context()
			pool, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			list, err := storage.NewReservationRepository(pool, outbox.NewRepository()).ListByDate(ctx, d)
			if err != nil {
				return err
			}
			targets := list
			if !all {
				targets = pendingOnly(list)
			}
			printReport(cmd.OutOrStdout(), conflicts.Report(targets, list))
			return nil
		},
	}
	c.Flags().StringVar(&date, "date", "", "day to review, YYYY-MM-DD")
	c.Flags().BoolVar(&all, "all", false, "check every active reservation, not only pending ones")
	_ = c.MarkFlagRequired("date")
	return c
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the booking schema to DATABASE_URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := storage.Migrate(ctx, pool); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func newTokenCmd() *cobra.Command {
	var (
		sub  string
		name string
		role string
		ttl  time.Duration
	)
	c := &cobra.Command{
		Use:   "token",
		Short: "Mint a staff dashboard token signed with STAFF_JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := config.RequiredString("STAFF_JWT_SECRET")
			if err != nil {
				return err
			}
			if role != "staff" && role != "admin" {
				return fmt.Errorf("invalid --role %q (want staff or admin)", role)
			}
			now := time.Now()
			tok, err := auth.SignHS256(auth.Claims{
				Sub:  sub,
				Name: name,
				Role: role,
				Iat:  now.Unix(),
				Exp:  now.Add(ttl).Unix(),
			}, secret)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	c.Flags().StringVar(&sub, "sub", "", "staff member id")
	c.Flags().StringVar(&name, "name", "", "display name")
	c.Flags().StringVar(&role, "role", "staff", "staff or admin")
	c.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	_ = c.MarkFlagRequired("sub")
	return c
}

func openDB(ctx context.Context) (*db.Pool, error) {
	url, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		return nil, err
	}
	return db.Open(ctx, url, db.WithMaxConns(2))
}

func pendingOnly(list []model.Reservation) []model.Reservation {
	var out []model.Reservation
	for _, r := range list {
		if r.Status == model.StatusPending {
			out = append(out, r)
		}
	}
	return out
}

func printReport(w io.Writer, flagged []conflicts.Flagged) {
	if len(flagged) == 0 {
		fmt.Fprintln(w, "nothing to review")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WINDOW\tNAME\tGUESTS\tSTATUS\tCONFLICTS")
	for _, f := range flagged {
		r := f.Reservation
		var with []string
		for _, c := range f.Conflicts {
			with = append(with, fmt.Sprintf("%s %s-%s (%s)", c.Name, c.StartTime, c.EndTime, c.Status))
		}
		summary := "none"
		if len(with) > 0 {
			summary = strings.Join(with, "; ")
		}
		fmt.Fprintf(tw, "%s-%s\t%s\t%d\t%s\t%s\n", r.StartTime, r.EndTime, r.Name, r.Guests, r.Status, summary)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "%d of %d with conflicts\n", conflicts.Count(flagged), len(flagged))
}

func joinClocks(cs []schedule.Clock) string {
	parts := make([]string, 0, len(cs))
	for _, c := range cs {
		parts = append(parts, c.String())
	}
	return strings.Join(parts, " ")
}
