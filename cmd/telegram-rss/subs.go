package main

import (
	"strconv"

	"github.com/JuniorJPDJ/telegram-rss/internal/clifmt"
	"github.com/JuniorJPDJ/telegram-rss/internal/statepaths"
	"github.com/JuniorJPDJ/telegram-rss/internal/subscriptions"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newSubsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subs",
		Short: "Inspect stored feed subscriptions",
	}
	cmd.PersistentFlags().String("datadir", "", "Directory for the subscription state (default: datadir config key).")
	cmd.AddCommand(newSubsListCmd())
	return cmd
}

func newSubsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List subscriptions, optionally for one chat or one feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("datadir") {
				dir, _ := cmd.Flags().GetString("datadir")
				viper.Set("datadir", dir)
			}
			store, err := subscriptions.Open(statepaths.SubscriptionsPath())
			if err != nil {
				return err
			}

			var subs []subscriptions.Subscription
			switch {
			case cmd.Flags().Changed("chat"):
				chatID, _ := cmd.Flags().GetInt64("chat")
				subs, err = store.ForChat(cmd.Context(), chatID)
			case cmd.Flags().Changed("url"):
				url, _ := cmd.Flags().GetString("url")
				subs, err = store.Chats(cmd.Context(), url)
			default:
				subs, err = store.All(cmd.Context())
			}
			if err != nil {
				return err
			}

			rows := make([]clifmt.NameDetailRow, 0, len(subs))
			for _, s := range subs {
				rows = append(rows, clifmt.NameDetailRow{
					Name:   strconv.FormatInt(s.ChatID, 10),
					Detail: s.Title + ": " + s.URL,
				})
			}
			clifmt.PrintNameDetailTable(cmd.OutOrStdout(), clifmt.NameDetailTableOptions{
				Title:        "Subscriptions",
				Rows:         rows,
				EmptyText:    "No subscriptions.",
				NameHeader:   "CHAT",
				DetailHeader: "FEED",
			})
			return nil
		},
	}
	cmd.Flags().Int64("chat", 0, "Only list this chat's subscriptions.")
	cmd.Flags().String("url", "", "Only list the chats following this feed url.")
	return cmd
}
