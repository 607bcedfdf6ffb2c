package telegram

import (
	"testing"
	"time"
)

func TestNormalizeRunOptions(t *testing.T) {
	got := normalizeRunOptions(RunOptions{
		BotToken:       " token ",
		AllowedChatIDs: []int64{2, 0, 1, 2},
		PollTimeout:    45 * time.Second,
		MaxConcurrency: 5,
	})
	if got.BotToken != "token" {
		t.Fatalf("bot token = %q, want token", got.BotToken)
	}
	if len(got.AllowedChatIDs) != 2 || got.AllowedChatIDs[0] != 1 || got.AllowedChatIDs[1] != 2 {
		t.Fatalf("allowed chat ids = %#v, want [1 2]", got.AllowedChatIDs)
	}
	if got.PollTimeout != 45*time.Second || got.MaxConcurrency != 5 {
		t.Fatalf("explicit options should be preserved: %#v", got)
	}
	if got.HTTPClient == nil || got.HTTPClient.Timeout != 75*time.Second {
		t.Fatalf("http client = %#v", got.HTTPClient)
	}
}

func TestNormalizeRunOptionsDefaults(t *testing.T) {
	got := normalizeRunOptions(RunOptions{})
	if got.PollTimeout != 30*time.Second {
		t.Fatalf("poll timeout = %v, want 30s", got.PollTimeout)
	}
	if got.TaskTimeout != time.Minute {
		t.Fatalf("task timeout = %v, want 1m", got.TaskTimeout)
	}
	if got.MaxConcurrency != 3 || got.QueueSize != 16 {
		t.Fatalf("defaults mismatch: %#v", got)
	}
	if got.AllowedChatIDs != nil {
		t.Fatalf("allowed chat ids = %#v, want nil", got.AllowedChatIDs)
	}
}
