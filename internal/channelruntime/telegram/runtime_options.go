package telegram

import (
	"net/http"
	"sort"
	"strings"
	"time"

	botapi "github.com/JuniorJPDJ/telegram-rss/internal/telegram"
)

type RunOptions struct {
	BotToken       string
	BaseURL        string
	AllowedChatIDs []int64
	PollTimeout    time.Duration
	TaskTimeout    time.Duration
	MaxConcurrency int
	// QueueSize bounds pending messages per chat; extra messages are dropped.
	QueueSize int
	// RetryDelay is how long to wait before resending a reply that failed
	// with a retryable error.
	RetryDelay time.Duration
	HTTPClient *http.Client
	// Client, when set, is used as is and BotToken, BaseURL and HTTPClient
	// are ignored. It lets the caller share one client with the handler.
	Client *botapi.Client
}

func normalizeRunOptions(opts RunOptions) RunOptions {
	opts.BotToken = strings.TrimSpace(opts.BotToken)
	opts.BaseURL = strings.TrimSpace(opts.BaseURL)
	opts.AllowedChatIDs = normalizeAllowedChatIDs(opts.AllowedChatIDs)

	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 30 * time.Second
	}
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = time.Minute
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 3
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 16
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 2 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.PollTimeout + 30*time.Second}
	}
	return opts
}

// normalizeAllowedChatIDs drops zeros and duplicates and sorts the rest.
func normalizeAllowedChatIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
