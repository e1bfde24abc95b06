package scanning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// receiptScanPrompt is the prompt used by vision-model backends for reading
// bar slips. The field set matches ExtractedData one to one.
const receiptScanPrompt = `You are analyzing a handwritten or printed slip from a hostess bar. Carefully read all text in the image and extract the following information:

1. **Total amount**: the final total of the slip in yen. Look for "合計", "TOTAL" or the largest amount near the bottom. Extract only the integer value (e.g. 12000 for ¥12,000).
2. **Customer name**: the guest's name, often followed by 様 or さん.
3. **Employee name**: the attending hostess or staff name if written on the slip.
4. **Date**: the transaction date in ISO 8601 format (YYYY-MM-DD).
5. **Drink count**: the number of drinks ("ドリンク", "D") as an integer.
6. **Champagne type**: the champagne brand if one was opened (e.g. モエ, ドンペリ, アルマンド).
7. **Champagne price**: the champagne price in yen as an integer.
8. **Card payment**: true if paid by card ("カード", "credit", "VISA"), false if paid in cash ("現金", "cash").

Return ONLY valid JSON in this exact format:
{
  "total_amount": 0,
  "customer_name": "",
  "employee_name": "",
  "date": "YYYY-MM-DD",
  "drink_count": 0,
  "champagne_type": "",
  "champagne_price": 0,
  "is_card": false
}

Important:
- Amounts and counts must be numbers (not strings), in yen
- The date must be in YYYY-MM-DD format
- If you cannot find a field, use null for that field
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// geminiModelConfidence is attributed to the Gemini backend when it
// answers at all; the API reports no per-field confidence of its own.
const geminiModelConfidence = 0.85

// Gemini implements the Scanner interface using Google Gemini
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini Scanner instance
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

// Scan analyzes a slip image and proposes field values.
func (g *Gemini) Scan(ctx context.Context, imageData []byte, contentType string) (*Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	finalImageData, _, _, err := NormalizeImage(imageData, contentType)
	if err != nil {
		return nil, err
	}

	// genai.ImageData takes just the format suffix, and NormalizeImage
	// guarantees PNG.
	parts := []genai.Part{
		genai.ImageData("png", finalImageData),
		genai.Text(receiptScanPrompt),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	text := strings.TrimSpace(responseText.String())
	data, err := parseExtractedJSON(text)
	if err != nil {
		return nil, fmt.Errorf("parsing extracted data: %w", err)
	}

	return &Outcome{
		Data:            data,
		ModelConfidence: geminiModelConfidence,
		RawText:         text,
	}, nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
