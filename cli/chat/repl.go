package chat

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.design/x/clipboard"

	"github.com/malonaz/companion/conversation"
	"github.com/malonaz/companion/internal/cli"
	"github.com/malonaz/companion/internal/markdown"
	"github.com/malonaz/companion/store"
)

const helpText = `Commands:
  /new              create a chat
  /list             list chats
  /select <n|id>    select a chat by position or ID
  /rename           rename the selected chat
  /reset            clear the selected chat
  /delete           delete the selected chat
  /search <query>   list chats matching query
  /copy [code]      copy the last reply, or its last code block, to the clipboard
  /quit             exit
Anything else is sent to the selected chat.`

var errQuit = errors.New("quit")

// copyToClipboard is replaced in tests.
var copyToClipboard = func(content []byte) error {
	if err := clipboard.Init(); err != nil {
		return errors.Wrap(err, "initializing clipboard")
	}
	clipboard.Write(clipboard.FmtText, content)
	return nil
}

type repl struct {
	driver   *conversation.Driver
	store    *store.Store
	prompter store.Prompter
	// Asks before destructive commands.
	confirm func(question string) (bool, error)
	// Nil prints replies as plain text.
	renderer *markdown.Renderer
	// Upper bound on how long a command waits for a reply before returning to the prompt.
	replyTimeout time.Duration
}

func newREPL(driver *conversation.Driver, prompter store.Prompter, renderer *markdown.Renderer, replyTimeout time.Duration) *repl {
	return &repl{
		driver:       driver,
		store:        driver.Store(),
		prompter:     prompter,
		confirm:      cli.QueryUser,
		renderer:     renderer,
		replyTimeout: replyTimeout,
	}
}

// parseCommand splits a slash command into its name and argument.
func parseCommand(line string) (string, string, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return "", "", false
	}
	name, arg, _ := strings.Cut(line[1:], " ")
	return strings.ToLower(name), strings.TrimSpace(arg), true
}

// execute runs one line of input. It returns errQuit when the user asks to leave.
func (r *repl) execute(ctx context.Context, line string) error {
	name, arg, ok := parseCommand(line)
	if !ok {
		return r.send(ctx, line)
	}

	switch name {
	case "help", "h":
		cli.CommandOutput("%s", helpText)
	case "new", "n":
		chatID, call := r.driver.CreateChat()
		cli.CommandOutput("created chat %s", chatID)
		r.await(ctx, call)
	case "list", "l", "ls":
		r.printChats(r.store.Chats())
	case "search", "s":
		r.printChats(r.store.SearchChats(arg))
	case "select":
		chatID, err := r.resolveChat(arg)
		if err != nil {
			return err
		}
		call := r.driver.SelectChat(chatID)
		r.printTranscript()
		r.await(ctx, call)
	case "rename":
		chatID, err := r.selected()
		if err != nil {
			return err
		}
		renamed, err := r.store.RenameChatWith(chatID, r.prompter)
		if err != nil {
			return err
		}
		if renamed {
			chat, _ := r.store.GetChat(chatID)
			cli.CommandOutput("renamed to %q", chat.Title)
		}
	case "reset":
		chatID, err := r.selected()
		if err != nil {
			return err
		}
		if ok, err := r.confirmed("Clear every message of this chat?"); !ok {
			return err
		}
		r.store.ResetChat(chatID)
		cli.CommandOutput("chat reset")
	case "delete":
		chatID, err := r.selected()
		if err != nil {
			return err
		}
		if ok, err := r.confirmed("Delete this chat?"); !ok {
			return err
		}
		call := r.driver.DeleteChat(chatID)
		cli.CommandOutput("chat deleted")
		if _, ok := r.store.SelectedChat(); ok {
			r.printTranscript()
		}
		r.await(ctx, call)
	case "copy":
		return r.copyLastReply(arg == "code")
	case "quit", "q", "exit":
		return errQuit
	default:
		return errors.Errorf("unknown command /%s, try /help", name)
	}
	return nil
}

func (r *repl) confirmed(question string) (bool, error) {
	ok, err := r.confirm(question)
	if err != nil {
		return false, errors.Wrap(err, "asking for confirmation")
	}
	if !ok {
		cli.CommandOutput("cancelled")
	}
	return ok, nil
}

func (r *repl) send(ctx context.Context, input string) error {
	chatID, err := r.selected()
	if err != nil {
		return err
	}
	call, err := r.driver.Send(chatID, input)
	if err != nil {
		if errors.Is(err, conversation.ErrEmptyInput) {
			return nil
		}
		return err
	}
	r.await(ctx, call)
	return nil
}

// await prints the outcome of a call, giving up on waiting after the reply timeout.
// The call keeps running in the background either way.
func (r *repl) await(ctx context.Context, call *conversation.Call) {
	if call == nil {
		return
	}
	cli.Pending(store.PendingText)
	var timeout <-chan time.Time
	if r.replyTimeout > 0 {
		timer := time.NewTimer(r.replyTimeout)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case <-call.Done():
		replyText, err := call.Result()
		if err != nil {
			cli.Error("%s", replyText)
			return
		}
		cli.AIOutput(r.renderer.Render(replyText))
	case <-timeout:
		cli.Pending("still waiting, the reply will appear in the chat when it arrives")
	case <-ctx.Done():
	}
}

func (r *repl) selected() (string, error) {
	chatID := r.store.SelectedChatID()
	if chatID == "" {
		return "", errors.New("no chat selected, use /new")
	}
	return chatID, nil
}

// resolveChat accepts a 1-based position in the chat list or a chat ID.
func (r *repl) resolveChat(arg string) (string, error) {
	if arg == "" {
		return "", errors.New("usage: /select <n|id>")
	}
	chats := r.store.Chats()
	if position, err := strconv.Atoi(arg); err == nil {
		if position < 1 || position > len(chats) {
			return "", errors.Errorf("no chat at position %d", position)
		}
		return chats[position-1].ID, nil
	}
	if _, ok := r.store.GetChat(arg); !ok {
		return "", errors.Errorf("no chat with ID %q", arg)
	}
	return arg, nil
}

func (r *repl) copyLastReply(codeOnly bool) error {
	chat, ok := r.store.SelectedChat()
	if !ok {
		return errors.New("no chat selected")
	}
	for i := len(chat.Messages) - 1; i >= 0; i-- {
		message := chat.Messages[i]
		if message.Role != store.RoleAssistant || message.IsPending() {
			continue
		}
		content := message.Text
		if codeOnly {
			block, ok := markdown.LastCodeBlock(content)
			if !ok {
				return errors.New("the last reply has no code block")
			}
			content = block.Code
		}
		if err := copyToClipboard([]byte(content)); err != nil {
			return err
		}
		cli.CommandOutput("copied to clipboard")
		return nil
	}
	return errors.New("no reply to copy")
}

func (r *repl) printChats(chats []*store.Chat) {
	if len(chats) == 0 {
		cli.CommandOutput("no chats")
		return
	}
	selectedChatID := r.store.SelectedChatID()
	for i, chat := range chats {
		marker := " "
		if chat.ID == selectedChatID {
			marker = "*"
		}
		cli.CommandOutput("%s %d. %s (%s) %s", marker, i+1, chat.Title, chat.ID, FormatSnippet(chat.Snippet(), 60))
	}
}

func (r *repl) printTranscript() {
	chat, ok := r.store.SelectedChat()
	if !ok {
		return
	}
	cli.Title("%s", chat.Title)
	for _, message := range chat.Messages {
		switch {
		case message.Role == store.RoleUser:
			cli.UserInput(message.Text)
		case message.IsPending():
			cli.Pending(message.Text)
		case message.Status == store.StatusFailed:
			cli.Error("%s", message.Text)
		default:
			cli.AIOutput(r.renderer.Render(message.Text))
		}
	}
	cli.Separator()
}

// FormatSnippet flattens text to one line of at most n runes.
func FormatSnippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return fmt.Sprintf("%s...", string(runes[:n]))
}
