// Package telegram runs the bot against the Bot API: it long-polls for
// updates, queues each message per chat and sends back whatever the
// handler answers.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	runtimeworker "github.com/JuniorJPDJ/telegram-rss/internal/channelruntime/worker"
	"github.com/JuniorJPDJ/telegram-rss/internal/chunk"
	"github.com/JuniorJPDJ/telegram-rss/internal/message"
	"github.com/JuniorJPDJ/telegram-rss/internal/outputfmt"
	"github.com/JuniorJPDJ/telegram-rss/internal/retryutil"
	botapi "github.com/JuniorJPDJ/telegram-rss/internal/telegram"
)

// Handler answers one inbound message. handled is false for messages the
// handler does not care about.
type Handler interface {
	HandleMessage(ctx context.Context, msg *message.Message, botUsername string) (reply string, handled bool)
}

type HandlerFunc func(ctx context.Context, msg *message.Message, botUsername string) (string, bool)

func (f HandlerFunc) HandleMessage(ctx context.Context, msg *message.Message, botUsername string) (string, bool) {
	return f(ctx, msg, botUsername)
}

type telegramJob struct {
	Message  message.Message
	Received time.Time
}

// Run polls until ctx is done. It returns an error only when it cannot
// start.
func Run(ctx context.Context, logger *slog.Logger, handler Handler, opts RunOptions) error {
	if handler == nil {
		return fmt.Errorf("telegram runtime: nil handler")
	}
	opts = normalizeRunOptions(opts)
	client := opts.Client
	if client == nil {
		if opts.BotToken == "" {
			return fmt.Errorf("missing telegram.bot_token (set via --telegram-bot-token or TELEGRAM_RSS_TELEGRAM_BOT_TOKEN)")
		}
		client = botapi.New(opts.HTTPClient, opts.BaseURL, opts.BotToken)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return run(ctx, logger, client, handler, opts)
}

func run(ctx context.Context, logger *slog.Logger, client *botapi.Client, handler Handler, opts RunOptions) error {
	allowed := make(map[int64]bool, len(opts.AllowedChatIDs))
	for _, id := range opts.AllowedChatIDs {
		allowed[id] = true
	}

	me, ok := startClient(ctx, logger, client)
	if !ok {
		return nil
	}
	logger.Info("telegram_start",
		"bot_id", me.ID,
		"bot_username", me.Username,
		"poll_timeout", opts.PollTimeout.String(),
		"task_timeout", opts.TaskTimeout.String(),
		"max_concurrency", opts.MaxConcurrency,
		"allowed_chats", len(allowed),
	)

	workersCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	workers := runtimeworker.NewGroup(workersCtx, int64(opts.MaxConcurrency), opts.QueueSize,
		func(workerCtx context.Context, chatID int64, job telegramJob) {
			handleJob(workerCtx, logger, client, handler, opts, chatID, job)
		})

	var offset int64
	for {
		updates, nextOffset, err := client.GetUpdates(ctx, offset, opts.PollTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				logger.Info("telegram_stop", "reason", "context_canceled")
				return nil
			}
			if botapi.IsPollTimeout(err) {
				logger.Debug("telegram_get_updates_timeout", "error", outputfmt.FormatErrorForDisplay(err))
			} else {
				logger.Warn("telegram_get_updates_error", "error", outputfmt.FormatErrorForDisplay(err))
			}
			if !sleepCtx(ctx, time.Second) {
				logger.Info("telegram_stop", "reason", "context_canceled")
				return nil
			}
			continue
		}
		offset = nextOffset

		for _, u := range updates {
			msg := u.Incoming()
			if msg == nil || msg.Chat == nil || strings.TrimSpace(msg.Text) == "" {
				continue
			}
			chatID := msg.Chat.ID
			if len(allowed) > 0 && !allowed[chatID] {
				logger.Debug("telegram_chat_not_allowed", "chat_id", chatID)
				continue
			}
			job := telegramJob{Message: botapi.ToMessage(msg), Received: time.Now()}
			if err := workers.TryEnqueue(chatID, job); err != nil {
				logger.Warn("telegram_enqueue_error", "chat_id", chatID, "message_id", msg.MessageID, "error", err.Error())
			}
		}
	}
}

// startClient retries getMe until it succeeds or ctx is done.
func startClient(ctx context.Context, logger *slog.Logger, client *botapi.Client) (*botapi.User, bool) {
	for {
		me, err := client.Start(ctx)
		if err == nil {
			return me, true
		}
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			logger.Info("telegram_stop", "reason", "context_canceled")
			return nil, false
		}
		logger.Warn("telegram_get_me_error", "error", outputfmt.FormatErrorForDisplay(err))
		if !sleepCtx(ctx, 2*time.Second) {
			logger.Info("telegram_stop", "reason", "context_canceled")
			return nil, false
		}
	}
}

func handleJob(ctx context.Context, logger *slog.Logger, client *botapi.Client, handler Handler, opts RunOptions, chatID int64, job telegramJob) {
	runCtx, cancel := context.WithTimeout(ctx, opts.TaskTimeout)
	defer cancel()

	msg := job.Message
	reply, handled := handler.HandleMessage(runCtx, &msg, client.Username())
	if !handled {
		return
	}
	logger.Debug("telegram_message_handled",
		"chat_id", chatID,
		"message_id", msg.MessageID,
		"queued_for", time.Since(job.Received).String(),
		"reply_len", len(reply),
	)
	if strings.TrimSpace(reply) == "" {
		return
	}
	parts := chunk.Split(reply, chunk.DefaultMaxLength)
	sent, err := client.SendChunks(runCtx, chatID, msg.MessageID, parts)
	if err == nil {
		return
	}
	if ctx.Err() != nil {
		return
	}
	logger.Warn("telegram_send_error",
		"chat_id", chatID,
		"message_id", msg.MessageID,
		"sent_chunks", sent,
		"total_chunks", len(parts),
		"error", outputfmt.FormatErrorForDisplay(err),
	)
	if !botapi.IsRetryable(err) {
		return
	}
	// Only the first chunk quotes the command; a resume starts mid-reply.
	replyTo := msg.MessageID
	if sent > 0 {
		replyTo = 0
	}
	rest := parts[sent:]
	retryutil.AsyncRetry(ctx, logger.With("chat_id", chatID), "telegram_send", opts.RetryDelay, opts.TaskTimeout, func(retryCtx context.Context) error {
		if _, err := client.SendChunks(retryCtx, chatID, replyTo, rest); err != nil {
			// Transport errors carry the request URL, token included.
			return errors.New(outputfmt.FormatErrorForDisplay(err))
		}
		return nil
	})
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
