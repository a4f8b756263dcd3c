package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"
)

const defaultVoice = "cmn-TW-Wavenet-A"

// Client synthesizes Mandarin speech for order voice files.
type Client struct {
	client *texttospeech.Client
	voice  string
}

// ClientOption customises the client.
type ClientOption func(*Client)

// WithVoice overrides the synthesis voice.
func WithVoice(voice string) ClientOption {
	return func(c *Client) {
		if strings.TrimSpace(voice) != "" {
			c.voice = strings.TrimSpace(voice)
		}
	}
}

// NewClient constructs a text-to-speech client. credentialsFile may be empty
// to use ambient credentials.
func NewClient(ctx context.Context, credentialsFile string, opts ...ClientOption) (*Client, error) {
	var clientOpts []option.ClientOption
	if strings.TrimSpace(credentialsFile) != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := texttospeech.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("tts: new client: %w", err)
	}

	c := &Client{client: client, voice: defaultVoice}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Close releases the underlying client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// languageCode derives the BCP-47 language code from a voice name such as
// cmn-TW-Wavenet-A.
func languageCode(voice string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) >= 2 {
		return parts[0] + "-" + parts[1]
	}
	return "cmn-TW"
}

// Synthesize renders text to MP3 audio with the configured voice. speakingRate
// of 0 means the service default.
func (c *Client) Synthesize(ctx context.Context, text string, speakingRate float64) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("tts: empty text")
	}

	req := &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: languageCode(c.voice),
			Name:         c.voice,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
			SpeakingRate:  speakingRate,
		},
	}

	resp, err := c.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("tts: synthesize: %w", err)
	}
	if len(resp.AudioContent) == 0 {
		return nil, errors.New("tts: empty audio content")
	}
	return resp.AudioContent, nil
}
