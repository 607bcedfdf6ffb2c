package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/JuniorJPDJ/telegram-rss/internal/chunk"
	"github.com/spf13/cobra"
)

const chunkRule = "-----"

func newSplitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "split",
		Short: "Split stdin into message-sized chunks",
		Long:  "Split stdin the way long replies are split before sending, and print the chunks separated by a rule line.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			maxLen, _ := cmd.Flags().GetInt("max")
			if maxLen <= 0 {
				return fmt.Errorf("--max must be positive")
			}
			raw, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			parts := chunk.Split(strings.TrimRight(string(raw), "\n"), maxLen)
			w := cmd.OutOrStdout()
			for i, part := range parts {
				if i > 0 {
					_, _ = fmt.Fprintln(w, chunkRule)
				}
				_, _ = fmt.Fprint(w, part)
				if !strings.HasSuffix(part, "\n") {
					_, _ = fmt.Fprintln(w)
				}
			}
			return nil
		},
	}
	cmd.Flags().Int("max", chunk.DefaultMaxLength, "Max chunk length in characters.")
	return cmd
}
