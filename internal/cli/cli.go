package cli

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/buger/goterm"
	"github.com/chzyer/readline"
	"github.com/fatih/color"
)

var (
	// Colors for different types of output
	userInputColor = color.New(color.FgWhite)               // White for user input
	commandColor   = color.New(color.FgGreen)               // Green for command feedback
	aiOutputColor  = color.New(color.FgCyan)                // Cyan for replies
	pendingColor   = color.New(color.FgHiYellow)            // Yellow for pending placeholders
	errorColor     = color.New(color.FgRed)                 // Red for failures
	titleColor     = color.New(color.FgMagenta, color.Bold) // Bold magenta for titles
	separatorColor = color.New(color.FgHiBlack)             // Dark grey for separators
	promptColor    = color.New(color.FgHiBlue)              // Bright blue for prompts

	width = goterm.Width()
)

// Separator printed to cli.
func Separator() {
	separator := strings.Repeat("-", max(width, 1))
	separatorColor.Println(separator)
}

// Title printed to cli.
func Title(text string, args ...any) {
	title := "      " + fmt.Sprintf(text, args...) + "      "
	leftWidth := max((width-len(title))/2, 0)
	separator1 := strings.Repeat("-", leftWidth)
	separator2 := strings.Repeat("-", max(width-len(title)-len(separator1), 0))
	output := fmt.Sprintf("%s%s%s", separator1, title, separator2)
	titleColor.Println(output)
}

// UserInput printed to cli.
func UserInput(text string) {
	userInputColor.Printf("-> %s\n", text)
}

// CommandOutput printed to cli.
func CommandOutput(text string, args ...any) {
	commandColor.Printf(text+"\n", args...)
}

// AIOutput printed to cli.
func AIOutput(text string) {
	aiOutputColor.Println(text)
}

// Pending printed to cli.
func Pending(text string) {
	pendingColor.Println(text)
}

// Error printed to cli.
func Error(text string, args ...any) {
	errorColor.Printf(text+"\n", args...)
}

// PromptUser for input. Enter submits, Ctrl+J continues on a new line.
func PromptUser(historyFile string) (string, error) {
	more := false
	config := &readline.Config{
		Prompt:            promptColor.Sprint("> "),
		InterruptPrompt:   "^C",
		HistoryFile:       historyFile,
		HistorySearchFold: true,
		FuncFilterInputRune: func(r rune) (rune, bool) {
			if r == '\x0A' { // Ctrl + J
				more = true
			}
			return r, true
		},
	}

	rl, err := readline.NewEx(config)
	if err != nil {
		return "", err
	}
	defer rl.Close()
	var lines []string
	for {
		line, err := rl.Readline()
		if err != nil {
			return "", err
		}
		lines = append(lines, line)
		if !more {
			break
		}
		more = false
		rl.SetPrompt("")
	}
	return strings.Join(lines, "\n"), nil
}

// QueryUser asks a yes/no question. Ctrl+C answers no.
func QueryUser(question string) (bool, error) {
	surveyQuestion := &survey.Confirm{
		Message: question,
	}
	confirm := false
	if err := survey.AskOne(surveyQuestion, &confirm); err != nil {
		if err == terminal.InterruptErr {
			return false, nil
		}
		return false, err
	}
	return confirm, nil
}

// TitlePrompter asks for a chat title on the terminal.
type TitlePrompter struct{}

// Prompt implements store.Prompter. Ctrl+C cancels.
func (TitlePrompter) Prompt(currentTitle string) (string, bool, error) {
	question := &survey.Input{
		Message: "Rename chat",
		Default: currentTitle,
	}
	var title string
	if err := survey.AskOne(question, &title); err != nil {
		if err == terminal.InterruptErr {
			return "", false, nil
		}
		return "", false, err
	}
	return title, true, nil
}

// Width of the terminal.
func Width() int {
	return width
}
