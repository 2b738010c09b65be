package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"nest/internal/modules/assistant"
	"nest/internal/modules/details"
	"nest/internal/modules/grounding"
	"nest/internal/modules/media"
	"nest/internal/modules/suggestion"
	"nest/internal/modules/trip"
)

var (
	suggestDate    string
	suggestDay     int
	suggestPrefs   string
	suggestExclude []string
	teaserVibe     string
	detailsWhere   string
)

var suggestCmd = &cobra.Command{
	Use:   "suggest <destination>",
	Short: "Suggest three activities for one day",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := newRuntime(cmd)
		if suggestDate == "" {
			suggestDate = time.Now().Format(trip.DateLayout)
		}
		out, err := suggestion.NewService(rt.creds, rt.factory, rt.log).SuggestActivities(cmd.Context(), suggestion.Request{
			Destination:    args[0],
			Date:           suggestDate,
			DayNumber:      suggestDay,
			Preferences:    suggestPrefs,
			ExcludedTitles: suggestExclude,
		})
		if err != nil {
			return err
		}
		return rt.printJSON(out)
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <question...>",
	Short: "Answer a travel question with web and maps sources",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := newRuntime(cmd)
		ans, err := grounding.NewService(rt.creds, rt.factory, rt.log).AnswerGrounded(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		return rt.printJSON(ans)
	},
}

var tipCmd = &cobra.Command{
	Use:   "tip <destination>",
	Short: "Print one short travel tip",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := newRuntime(cmd)
		svc := details.NewService(rt.creds, rt.factory, nil, nil, rt.log)
		_, err := fmt.Fprintln(rt.out, svc.QuickTip(cmd.Context(), args[0]))
		return err
	},
}

var detailsCmd = &cobra.Command{
	Use:   "details <activity>",
	Short: "Describe an activity or venue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := newRuntime(cmd)
		d, err := details.NewService(rt.creds, rt.factory, nil, nil, rt.log).ActivityDetails(cmd.Context(), args[0], detailsWhere)
		if err != nil {
			return err
		}
		return rt.printJSON(d)
	},
}

var teaserCmd = &cobra.Command{
	Use:   "teaser <destination>",
	Short: "Generate a short video teaser; may take several minutes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := newRuntime(cmd)
		svc := media.NewService(rt.creds, rt.factory, rt.log, media.Options{
			Selector: &stdinSelector{creds: rt.creds, in: cmd.InOrStdin(), out: cmd.ErrOrStderr()},
		})
		asset, err := svc.GenerateVideoTeaser(cmd.Context(), args[0], teaserVibe)
		if err != nil {
			return err
		}
		if asset == nil {
			return errors.New("no video was produced")
		}
		_, err = fmt.Fprintln(rt.out, asset.String())
		return err
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the travel assistant; one message per line",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rt := newRuntime(cmd)
		chat := assistant.NewChat(rt.creds, rt.factory, rt.log)
		defer chat.Close()

		sc := bufio.NewScanner(cmd.InOrStdin())
		for sc.Scan() {
			msg := strings.TrimSpace(sc.Text())
			if msg == "" {
				continue
			}
			reply, err := chat.Send(cmd.Context(), msg)
			if err != nil {
				return err
			}
			fmt.Fprintln(rt.out, reply)
		}
		return sc.Err()
	},
}

func init() {
	suggestCmd.Flags().StringVar(&suggestDate, "date", "", "day to plan, YYYY-MM-DD (default today)")
	suggestCmd.Flags().IntVar(&suggestDay, "day", 1, "day number within the trip")
	suggestCmd.Flags().StringVar(&suggestPrefs, "prefs", "", "travel preferences")
	suggestCmd.Flags().StringSliceVar(&suggestExclude, "exclude", nil, "titles already planned")
	teaserCmd.Flags().StringVar(&teaserVibe, "vibe", "", "mood of the teaser")
	detailsCmd.Flags().StringVar(&detailsWhere, "location", "", "where the activity is")

	rootCmd.AddCommand(suggestCmd, askCmd, tipCmd, detailsCmd, teaserCmd, chatCmd)
}
