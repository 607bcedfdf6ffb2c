// Package statepaths resolves where the bot keeps its files, from the
// "datadir" config key.
package statepaths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	DefaultDataDir        = "~/.telegram-rss"
	SubscriptionsFilename = "tg_chats.msgp"
)

func DataDir() string {
	return ResolveDataDir(viper.GetString("datadir"))
}

func SubscriptionsPath() string {
	return filepath.Join(DataDir(), SubscriptionsFilename)
}

// ResolveDataDir expands "~" and falls back to DefaultDataDir when dir is
// blank.
func ResolveDataDir(dir string) string {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = DefaultDataDir
	}
	return filepath.Clean(ExpandHome(dir))
}

func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}
