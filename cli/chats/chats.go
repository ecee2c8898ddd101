package chats

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/malonaz/companion/cli/chat"
	"github.com/malonaz/companion/internal/cli"
	"github.com/malonaz/companion/store"
)

// NewListCmd instantiates and returns the list command.
func NewListCmd(s *store.Store) *cobra.Command {
	var opts struct {
		Limit int
	}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all chats",
		Args:  cobra.ExactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			cli.Title("CHATS")
			printChats(limit(s.Chats(), opts.Limit), s.SelectedChatID())
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "l", 0, "maximum number of chats to list, 0 for all")
	return cmd
}

// NewSearchCmd instantiates and returns the search command.
func NewSearchCmd(s *store.Store) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search chat titles and messages",
		Args:  cobra.ArbitraryArgs,
		Run: func(cmd *cobra.Command, args []string) {
			query := strings.Join(args, " ")
			cli.Title("SEARCH %q", query)
			printChats(s.SearchChats(query), s.SelectedChatID())
		},
	}
	return cmd
}

func limit(chats []*store.Chat, n int) []*store.Chat {
	if n <= 0 || n >= len(chats) {
		return chats
	}
	return chats[:n]
}

func printChats(chats []*store.Chat, selectedChatID string) {
	if len(chats) == 0 {
		cli.CommandOutput("no chats")
		return
	}
	for _, c := range chats {
		marker := " "
		if c.ID == selectedChatID {
			marker = "*"
		}
		updated := time.UnixMilli(c.UpdatedAt).Format("Jan 2, 2006 3:04 PM")
		cli.CommandOutput("%s %s (%s) - %s", marker, c.Title, c.ID, updated)
		cli.AIOutput("    " + chat.FormatSnippet(c.Snippet(), 80))
	}
}
