package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

var (
	// ErrUnrecognised is returned when the model finds no menu items in the image.
	ErrUnrecognised = errors.New("vision: no menu items recognised")
	// ErrResponseInvalid is returned when the model reply is not parseable JSON.
	ErrResponseInvalid = errors.New("vision: response not parseable")
)

// UnrecognisedError decorates ErrUnrecognised with the note the model gave
// about why the image could not be read.
type UnrecognisedError struct {
	Notes string
}

func (e *UnrecognisedError) Error() string {
	if e.Notes == "" {
		return ErrUnrecognised.Error()
	}
	return ErrUnrecognised.Error() + ": " + e.Notes
}

func (e *UnrecognisedError) Unwrap() error { return ErrUnrecognised }

// MenuItem is one row the model extracted from a menu photo.
type MenuItem struct {
	Name           string `json:"name"`
	TranslatedName string `json:"translated_name"`
	PriceSmall     int    `json:"price_small"`
	PriceBig       int    `json:"price_big"`
	Description    string `json:"description"`
}

// StoreInfo is the store block the model extracted from the photo.
type StoreInfo struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// MenuResult is the structured output of one OCR pass.
type MenuResult struct {
	Success         bool       `json:"success"`
	Items           []MenuItem `json:"menu_items"`
	StoreInfo       StoreInfo  `json:"store_info"`
	ProcessingNotes string     `json:"processing_notes"`
}

// Client extracts structured menus from photos with a Gemini vision model.
type Client struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewClient initialises the Gemini client. The model responds in JSON only.
func NewClient(ctx context.Context, apiKey, modelName string) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("vision: create client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.ResponseMIMEType = "application/json"
	// Menus are factual extraction; keep the temperature low.
	model.SetTemperature(0.1)

	return &Client{client: client, model: model}, nil
}

// Close cleans up the underlying client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

const menuPrompt = `You are a menu digitisation assistant for restaurants in Taiwan.
Extract every dish from the attached menu photo.

Rules:
- "success" is true when at least one legible dish was extracted, false otherwise.
- "menu_items" holds one entry per dish.
- "name" is the dish name exactly as printed (Traditional Chinese expected).
- "translated_name" is the dish name translated to %s.
- "price_small" is the regular price as an integer in TWD. Required.
- "price_big" is the large-size price as an integer, or 0 when absent.
- "description" is a short translated description, or "" when nothing useful is printed.
- "store_info" carries the restaurant name, address, and phone number as printed; use "" for anything not visible.
- "processing_notes" briefly states anything that hindered extraction (blur, glare, not a menu), or "".
- Ignore decorations, slogans, and sold-out markers.
- If the image contains no legible menu at all, set "success" to false, leave "menu_items" empty, and explain why in "processing_notes".

Output JSON schema:
{"success": true, "menu_items": [{"name": "string", "translated_name": "string", "price_small": 0, "price_big": 0, "description": "string"}], "store_info": {"name": "string", "address": "string", "phone": "string"}, "processing_notes": "string"}`

// RecognizeMenu runs one OCR pass over the image and returns the parsed menu.
// The caller owns the timeout on ctx.
func (c *Client) RecognizeMenu(ctx context.Context, image []byte, mimeType, targetLang string) (MenuResult, error) {
	if len(image) == 0 {
		return MenuResult{}, errors.New("vision: empty image")
	}
	format := strings.TrimPrefix(mimeType, "image/")
	if format == "" {
		format = "jpeg"
	}
	if targetLang == "" {
		targetLang = "English"
	}

	prompt := fmt.Sprintf(menuPrompt, targetLang)
	resp, err := c.model.GenerateContent(ctx,
		genai.Text(prompt),
		genai.ImageData(format, image),
	)
	if err != nil {
		return MenuResult{}, fmt.Errorf("vision: generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return MenuResult{}, errors.New("vision: no response candidates")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}

	cleaned := cleanJSONString(text.String())
	var result MenuResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return MenuResult{}, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	if !result.Success || len(result.Items) == 0 {
		return MenuResult{}, &UnrecognisedError{Notes: strings.TrimSpace(result.ProcessingNotes)}
	}
	return result, nil
}

// cleanJSONString removes markdown code fences if present (e.g. ```json ... ```).
func cleanJSONString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "```json")
	input = strings.TrimPrefix(input, "```")
	input = strings.TrimSuffix(input, "```")
	return strings.TrimSpace(input)
}
