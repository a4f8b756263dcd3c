package linepush

import (
	"errors"
	"fmt"
	"strings"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// ErrInsecureAudioURL rejects audio attachments that LINE clients would refuse
// to play.
var ErrInsecureAudioURL = errors.New("linepush: audio url must be https")

// Message is one outbound text block.
type Message struct {
	Text string
}

// Audio is an optional voice attachment for a push.
type Audio struct {
	URL        string
	DurationMS int
}

// Client pushes order notifications to LINE users over the Messaging API.
type Client struct {
	api *messaging_api.MessagingApiAPI
}

// NewClient constructs a push client from the channel access token.
func NewClient(channelToken string) (*Client, error) {
	if strings.TrimSpace(channelToken) == "" {
		return nil, errors.New("linepush: channel token is required")
	}
	api, err := messaging_api.NewMessagingApiAPI(channelToken)
	if err != nil {
		return nil, fmt.Errorf("linepush: new api: %w", err)
	}
	return &Client{api: api}, nil
}

// Push sends the text messages, followed by the audio attachment when present,
// to one LINE user. LINE caps a push at five messages.
func (c *Client) Push(userID string, texts []Message, audio *Audio) error {
	if c == nil || c.api == nil {
		return errors.New("linepush: not initialised")
	}
	if strings.TrimSpace(userID) == "" {
		return errors.New("linepush: user id is required")
	}

	messages := make([]messaging_api.MessageInterface, 0, len(texts)+1)
	for _, m := range texts {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		messages = append(messages, messaging_api.TextMessage{Text: m.Text})
	}
	if audio != nil {
		if !strings.HasPrefix(audio.URL, "https://") {
			return ErrInsecureAudioURL
		}
		duration := audio.DurationMS
		if duration <= 0 {
			duration = 1000
		}
		messages = append(messages, messaging_api.AudioMessage{
			OriginalContentUrl: audio.URL,
			Duration:           int64(duration),
		})
	}
	if len(messages) == 0 {
		return errors.New("linepush: nothing to send")
	}
	if len(messages) > 5 {
		messages = messages[:5]
	}

	_, err := c.api.PushMessage(&messaging_api.PushMessageRequest{
		To:       userID,
		Messages: messages,
	}, "")
	if err != nil {
		return fmt.Errorf("linepush: push: %w", err)
	}
	return nil
}
