package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/malonaz/companion/internal/configuration"
)

// Request is the wire shape of a synthesis request.
type Request struct {
	VoiceID           string `json:"voiceId"`
	Text              string `json:"text"`
	MultiNativeLocale string `json:"multiNativeLocale"`
	Model             string `json:"model"`
	Format            string `json:"format"`
	SampleRate        int    `json:"sampleRate"`
	ChannelType       string `json:"channelType"`
}

// Client synthesizes text to audio and hands the audio to a player.
type Client struct {
	config     *configuration.SpeechConfig
	httpClient *http.Client
	player     Player
}

// NewClient instantiates and returns a new client.
// A zero timeout uses the default of 60 seconds. A negative timeout disables it.
func NewClient(config *configuration.SpeechConfig, player Player, timeout int) *Client {
	httpClient := &http.Client{}
	switch {
	case timeout == 0:
		httpClient.Timeout = 60 * time.Second
	case timeout > 0:
		httpClient.Timeout = time.Duration(timeout) * time.Second
	}
	if player == nil {
		player = DiscardPlayer{}
	}
	return &Client{config: config, httpClient: httpClient, player: player}
}

// Speak synthesizes the text and plays it.
func (c *Client) Speak(ctx context.Context, text string) error {
	audio, err := c.Synthesize(ctx, text)
	if err != nil {
		return err
	}
	if err := c.player.Play(ctx, audio, c.config.Format); err != nil {
		return errors.Wrap(err, "playing audio")
	}
	return nil
}

// Synthesize returns the audio for the given text.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	body, err := json.Marshal(&Request{
		VoiceID:           c.config.VoiceID,
		Text:              text,
		MultiNativeLocale: c.config.Locale,
		Model:             c.config.Model,
		Format:            c.config.Format,
		SampleRate:        c.config.SampleRate,
		ChannelType:       c.config.ChannelType,
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshaling request")
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("api-key", c.config.APIKey)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, errors.Wrap(err, "sending request")
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, errors.Errorf("speech service returned status %d", response.StatusCode)
	}
	audio, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading audio")
	}
	return audio, nil
}
