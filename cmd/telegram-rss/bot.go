package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	telegramruntime "github.com/JuniorJPDJ/telegram-rss/internal/channelruntime/telegram"
	"github.com/JuniorJPDJ/telegram-rss/internal/feedbot"
	"github.com/JuniorJPDJ/telegram-rss/internal/logutil"
	"github.com/JuniorJPDJ/telegram-rss/internal/statepaths"
	"github.com/JuniorJPDJ/telegram-rss/internal/subscriptions"
	botapi "github.com/JuniorJPDJ/telegram-rss/internal/telegram"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newBotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			token := strings.TrimSpace(flagOrViperString(cmd, "telegram-bot-token", "telegram.bot_token"))
			if token == "" {
				token = strings.TrimSpace(getString("tg_bot_token"))
			}
			if token == "" {
				return fmt.Errorf("missing telegram.bot_token (set via --telegram-bot-token or TELEGRAM_RSS_TELEGRAM_BOT_TOKEN)")
			}
			allowed, err := parseChatIDs(flagOrViperStringArray(cmd, "telegram-allowed-chat-id", "telegram.allowed_chat_ids"))
			if err != nil {
				return fmt.Errorf("telegram.allowed_chat_ids: %w", err)
			}
			if cmd.Flags().Changed("datadir") {
				dir, _ := cmd.Flags().GetString("datadir")
				viper.Set("datadir", dir)
			}

			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}

			store, err := subscriptions.Open(statepaths.SubscriptionsPath())
			if err != nil {
				return err
			}

			pollTimeout := flagOrViperDuration(cmd, "telegram-poll-timeout", "telegram.poll_timeout")
			if pollTimeout <= 0 {
				pollTimeout = 30 * time.Second
			}
			httpClient := &http.Client{Timeout: pollTimeout + 30*time.Second}
			client := botapi.New(httpClient, flagOrViperString(cmd, "telegram-base-url", "telegram.base_url"), token)
			bot := feedbot.New(store, client, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("feedbot_start",
				"datadir", statepaths.DataDir(),
				"subscriptions", store.Path(),
				"check_interval", flagOrViperDuration(cmd, "check-interval", "check_interval").String(),
				"commands", len(bot.Commands().Commands()),
			)
			return telegramruntime.Run(ctx, logger, bot, telegramruntime.RunOptions{
				AllowedChatIDs: allowed,
				PollTimeout:    pollTimeout,
				TaskTimeout:    flagOrViperDuration(cmd, "telegram-task-timeout", "telegram.task_timeout"),
				MaxConcurrency: flagOrViperInt(cmd, "telegram-max-concurrency", "telegram.max_concurrency"),
				QueueSize:      flagOrViperInt(cmd, "telegram-queue-size", "telegram.queue_size"),
				RetryDelay:     flagOrViperDuration(cmd, "telegram-retry-delay", "telegram.retry_delay"),
				Client:         client,
			})
		},
	}

	cmd.Flags().String("telegram-bot-token", "", "Telegram bot token.")
	cmd.Flags().String("telegram-base-url", botapi.DefaultBaseURL, "Telegram Bot API base URL.")
	cmd.Flags().StringArray("telegram-allowed-chat-id", nil, "Allowed chat id(s). If empty, allows all.")
	cmd.Flags().Duration("telegram-poll-timeout", 30*time.Second, "Long polling timeout for getUpdates.")
	cmd.Flags().Duration("telegram-task-timeout", time.Minute, "Per-message handling timeout.")
	cmd.Flags().Int("telegram-max-concurrency", 3, "Max number of chats processed concurrently.")
	cmd.Flags().Int("telegram-queue-size", 16, "Max pending messages per chat; extra messages are dropped.")
	cmd.Flags().Duration("telegram-retry-delay", 2*time.Second, "Delay before resending a reply that failed with a retryable error.")
	cmd.Flags().Duration("check-interval", 300*time.Second, "Feed check interval.")
	cmd.Flags().String("datadir", "", "Directory for the subscription state (default: datadir config key).")

	return cmd
}
