package chat

import (
	"context"
	"io"
	"time"

	"github.com/chzyer/readline"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/malonaz/companion/conversation"
	"github.com/malonaz/companion/internal/cli"
	"github.com/malonaz/companion/internal/configuration"
	"github.com/malonaz/companion/internal/debug"
	"github.com/malonaz/companion/internal/markdown"
	"github.com/malonaz/companion/store"
)

const historyFile = "/tmp/companion.history"

// NewCmd instantiates and returns the chat command.
func NewCmd(config *configuration.Config, s *store.Store, replier conversation.Replier, speaker conversation.Speaker) *cobra.Command {
	var opts struct {
		ChatID       string
		New          bool
		ReplyTimeout time.Duration
	}
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			log := debug.GetLogger()
			driver := conversation.New(ctx, s, replier,
				conversation.WithSpeaker(speaker),
				conversation.WithLogger(log),
				conversation.WithStrictSends(config.StrictSends),
				conversation.WithObserver(func(event conversation.Event) {
					log.Debug("call settled", zap.String("chat_id", event.ChatID), zap.Int("type", int(event.Type)))
				}),
			)
			// Unsettled calls resolve to the error text on the way out.
			defer driver.Wait()
			defer cancel()

			width := cli.Width()
			if width <= 0 {
				width = 100
			}
			renderer, err := markdown.NewRenderer(width)
			if err != nil {
				log.Warn("markdown rendering disabled", zap.Error(err))
				renderer = nil
			}
			r := newREPL(driver, cli.TitlePrompter{}, renderer, opts.ReplyTimeout)
			opening := driver.Resume()
			switch {
			case opts.New:
				if err := r.execute(ctx, "/new"); err != nil {
					return err
				}
			case opts.ChatID != "":
				if err := r.execute(ctx, "/select "+opts.ChatID); err != nil {
					return err
				}
			default:
				if _, ok := s.SelectedChat(); ok {
					r.printTranscript()
					r.await(ctx, opening)
				} else {
					cli.CommandOutput("no chats yet, use /new")
				}
			}
			return r.loop(ctx)
		},
	}

	cmd.Flags().StringVar(&opts.ChatID, "id", "", "select a chat by position or ID")
	cmd.Flags().BoolVarP(&opts.New, "new", "n", false, "start a new chat")
	cmd.Flags().DurationVar(&opts.ReplyTimeout, "wait", 2*time.Minute, "how long to wait for a reply before returning to the prompt")
	return cmd
}

func (r *repl) loop(ctx context.Context) error {
	for {
		input, err := cli.PromptUser(historyFile)
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return nil
			}
			return errors.Wrap(err, "reading input")
		}
		if err := r.execute(ctx, input); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			cli.Error("%v", err)
		}
	}
}
