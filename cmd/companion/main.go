package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/malonaz/companion/cli/chat"
	"github.com/malonaz/companion/cli/chats"
	"github.com/malonaz/companion/conversation"
	"github.com/malonaz/companion/internal/configuration"
	"github.com/malonaz/companion/internal/debug"
	"github.com/malonaz/companion/internal/reply"
	"github.com/malonaz/companion/internal/speech"
	"github.com/malonaz/companion/internal/storage"
	"github.com/malonaz/companion/server"
	"github.com/malonaz/companion/store"
)

const configFilepath = "~/.config/companion/config.json"

var rootCmd = &cobra.Command{
	Use:     "companion",
	Short:   "A chat client for a conversational reply service",
	Version: "1.0",
}

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	config, err := configuration.Parse(configFilepath)
	cobra.CheckErr(err)

	err = debug.Init(&debug.Opts{Path: config.Logging.Path, Level: config.Logging.Level})
	cobra.CheckErr(err)
	defer debug.Sync()
	log := debug.GetLogger()

	// Open storage.
	ctx := context.Background()
	backend, err := storage.New(ctx, config.Storage)
	cobra.CheckErr(err)
	// Ensure storage is closed when the program exits normally
	defer backend.Close()

	s := store.New(ctx, backend,
		store.WithLogger(log),
		store.WithPersistErrorHandler(func(err error) {
			fmt.Fprintf(os.Stderr, "could not save chats: %v\n", err)
		}),
	)

	replier := reply.NewClient(config.Reply, config.UserName, config.RequestTimeout)
	var speaker conversation.Speaker
	if config.Speech.Enabled {
		var player speech.Player = speech.DiscardPlayer{}
		if len(config.Speech.PlayerCommand) > 0 {
			player = &speech.CommandPlayer{Command: config.Speech.PlayerCommand}
		}
		speaker = speech.NewClient(config.Speech, player, config.RequestTimeout)
	}
	log.Debug("starting", zap.String("backend", config.Storage.Backend), zap.Bool("speech", speaker != nil))

	rootCmd.AddCommand(chat.NewCmd(config, s, replier, speaker))
	rootCmd.AddCommand(chats.NewListCmd(s))
	rootCmd.AddCommand(chats.NewSearchCmd(s))
	rootCmd.AddCommand(server.NewServeCmd(config, s, replier, speaker))
	return rootCmd.ExecuteContext(ctx)
}
