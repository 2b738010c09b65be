package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"nest/internal/modules/itinerary"
	"nest/internal/modules/media"
	"nest/internal/modules/trip"
	"nest/internal/service"
)

var (
	planStart   string
	planEnd     string
	planPrefs   string
	planTitle   string
	planNoMedia bool
)

var planCmd = &cobra.Command{
	Use:   "plan <destination>",
	Short: "Generate a full trip (itinerary, cover, teaser) and print it as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().StringVar(&planStart, "start", "", "first day, YYYY-MM-DD (default today)")
	planCmd.Flags().StringVar(&planEnd, "end", "", "last day, YYYY-MM-DD (default start)")
	planCmd.Flags().StringVar(&planPrefs, "prefs", "", "travel preferences")
	planCmd.Flags().StringVar(&planTitle, "title", "", "trip name")
	planCmd.Flags().BoolVar(&planNoMedia, "itinerary-only", false, "print only the itinerary")
	rootCmd.AddCommand(planCmd)
}

func parseDay(s string, fallback time.Time) (time.Time, error) {
	if s == "" {
		return fallback, nil
	}
	d, err := time.Parse(trip.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("dates must be YYYY-MM-DD: %w", err)
	}
	return d, nil
}

func runPlan(cmd *cobra.Command, args []string) error {
	rt := newRuntime(cmd)
	today := time.Now().UTC().Truncate(24 * time.Hour)
	start, err := parseDay(planStart, today)
	if err != nil {
		return err
	}
	end, err := parseDay(planEnd, start)
	if err != nil {
		return err
	}

	itineraries := itinerary.NewService(rt.creds, rt.factory, rt.log, 0)
	if planNoMedia {
		plan, err := itineraries.GenerateItinerary(cmd.Context(), args[0], itinerary.DayCount(start, end), planPrefs)
		if err != nil {
			return err
		}
		return rt.printJSON(plan)
	}

	mediaSvc := media.NewService(rt.creds, rt.factory, rt.log, media.Options{
		Selector: &stdinSelector{creds: rt.creds, in: cmd.InOrStdin(), out: cmd.ErrOrStderr()},
	})
	trips := trip.NewService(trip.NewMemoryStore(), nil, rt.log)
	planner := service.NewTripPlanner(itineraries, mediaSvc, trips, rt.log, service.PlannerOptions{})

	detail, err := planner.CreateTrip(cmd.Context(), "cli", service.CreateTripInput{
		Title:       planTitle,
		Destination: args[0],
		StartDate:   start,
		EndDate:     end,
		Preferences: planPrefs,
		UseAI:       true,
	})
	if err != nil {
		return err
	}
	return rt.printJSON(detail)
}
