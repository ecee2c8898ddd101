package speech

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// Player plays synthesized audio.
type Player interface {
	Play(ctx context.Context, audio []byte, format string) error
}

// DiscardPlayer drops the audio.
type DiscardPlayer struct{}

// Play implements Player.
func (DiscardPlayer) Play(context.Context, []byte, string) error { return nil }

// CommandPlayer writes the audio to a temporary file and runs a command on it,
// with the file path appended as the last argument.
type CommandPlayer struct {
	Command []string
}

// Play implements Player.
func (p *CommandPlayer) Play(ctx context.Context, audio []byte, format string) error {
	if len(p.Command) == 0 {
		return errors.New("no player command configured")
	}
	file, err := os.CreateTemp("", "companion-speech-*."+strings.ToLower(format))
	if err != nil {
		return errors.Wrap(err, "creating audio file")
	}
	defer os.Remove(file.Name())

	if _, err := file.Write(audio); err != nil {
		file.Close()
		return errors.Wrap(err, "writing audio file")
	}
	if err := file.Close(); err != nil {
		return errors.Wrap(err, "closing audio file")
	}

	args := append(append([]string{}, p.Command[1:]...), file.Name())
	output, err := exec.CommandContext(ctx, p.Command[0], args...).CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "running %s: %s", p.Command[0], strings.TrimSpace(string(output)))
	}
	return nil
}
