package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/codyseavey/tcg-scanner/internal/metrics"
	"github.com/codyseavey/tcg-scanner/internal/models"
)

const defaultGeminiModel = "gemini-2.5-flash"

const geminiOCRPrompt = `You are reading a photo of a Pokemon trading card. Transcribe the printed text on the card exactly as it appears, top to bottom, one printed line per output line.

Rules:
- Put the card name and its HP on the first line, e.g. "Pikachu 60 HP"
- Keep the collector number exactly as printed, e.g. "58/102" or "TG17/TG30"
- Keep rarity symbols as characters: ● for common, ◆ for uncommon, ★ for rare
- Put each attack on its own line as "<attack name> <damage>"
- Keep the "Weakness", "Resistance", "Retreat" and "Illus." lines
- Do not translate, correct or guess text you cannot read
- Return only the transcription, no commentary and no markdown`

// contentGenerator is the part of *genai.GenerativeModel the extractor uses
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiExtractor transcribes card photos with a Gemini vision model and parses the transcription
type GeminiExtractor struct {
	client    *genai.Client
	model     contentGenerator
	modelName string
}

// NewGeminiExtractor creates a Gemini-backed text extractor
func NewGeminiExtractor(ctx context.Context, apiKey, modelName string) (*GeminiExtractor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0)

	keyPreview := apiKey
	if len(keyPreview) > 6 {
		keyPreview = keyPreview[:6] + "..."
	}
	infoLog("Gemini OCR: enabled (model=%s, key=%s)", modelName, keyPreview)

	return &GeminiExtractor{client: client, model: model, modelName: modelName}, nil
}

// ExtractText sends the image to Gemini and parses the transcription.
// Returns nil without error when the model produced no text.
func (g *GeminiExtractor) ExtractText(ctx context.Context, base64Image string) (*models.CardInfo, error) {
	raw, err := DecodeBase64Image(base64Image)
	if err != nil {
		metrics.OCRErrorsTotal.WithLabelValues("gemini", categorizeOCRError(err)).Inc()
		return nil, err
	}
	pngData, err := ToPNG(raw)
	if err != nil {
		metrics.OCRErrorsTotal.WithLabelValues("gemini", categorizeOCRError(err)).Inc()
		return nil, err
	}

	// genai.ImageData wants the format suffix, not the MIME type
	start := time.Now()
	resp, err := g.model.GenerateContent(ctx, genai.ImageData("png", pngData), genai.Text(geminiOCRPrompt))
	metrics.OCRLatency.WithLabelValues("gemini").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.OCRErrorsTotal.WithLabelValues("gemini", categorizeOCRError(err)).Inc()
		return nil, fmt.Errorf("gemini: generating content: %w", err)
	}

	text := strings.TrimSpace(geminiResponseText(resp))
	text = strings.TrimPrefix(text, "```text")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	if text == "" {
		metrics.OCRErrorsTotal.WithLabelValues("gemini", "no_text").Inc()
		return nil, nil
	}
	debugLog("Gemini transcription (%d chars):\n%s", len(text), text)

	info := ParseCardText(text)
	return &info, nil
}

// Close releases the Gemini client
func (g *GeminiExtractor) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

func geminiResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}
