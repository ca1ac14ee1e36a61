package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/TomMcKenna1/nutrilytics-backend/models"
)

// MealGenerator maps a free-text meal description to a nutrition profile.
// Implementations are expected to be slow (seconds); callers run them off the
// request path.
type MealGenerator interface {
	Generate(ctx context.Context, description string) (*models.NutritionProfile, error)
}

// GenAIService calls a hosted text-generation model and asks it for a strict
// JSON nutrition profile.
type GenAIService struct {
	client *http.Client
	apiURL string
	token  string
	model  string
}

func NewGenAIService() *GenAIService {
	apiURL := os.Getenv("GENAI_API_URL")
	if apiURL == "" {
		apiURL = "https://api-inference.huggingface.co/models"
	}
	model := os.Getenv("GENAI_MODEL")
	if model == "" {
		model = "google/flan-t5-large"
	}
	return &GenAIService{
		client: &http.Client{Timeout: 60 * time.Second},
		apiURL: apiURL,
		token:  os.Getenv("GENAI_TOKEN"),
		model:  model,
	}
}

const nutritionPrompt = `Estimate the nutritional content of the following meal description.
Respond with a single JSON object and nothing else, in this shape:
{"name":string,"calories":number,"protein":number,"carbs":number,"fat":number,"sodium":number,"sugar":number,"components":[{"name":string,"type":"food","quantity":number,"calories":number,"protein":number,"carbs":number,"fat":number}]}
Quantities are grams, sodium is milligrams.

Meal: %s`

func (g *GenAIService) Generate(ctx context.Context, description string) (*models.NutritionProfile, error) {
	if g.token == "" {
		return nil, fmt.Errorf("GENAI_TOKEN not set")
	}

	body := map[string]any{
		"inputs": fmt.Sprintf(nutritionPrompt, description),
		"parameters": map[string]any{
			"max_new_tokens": 512,
			"temperature":    0.2,
		},
	}
	b, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		fmt.Sprintf("%s/%s", g.apiURL, g.model),
		bytes.NewReader(b),
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-wait-for-model", "true")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generation request error: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read generation response error: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBytes, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("generation api error (%d): %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("generation api error (%d): %s", resp.StatusCode, string(respBytes))
	}

	var out []struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.Unmarshal(respBytes, &out); err != nil {
		bodyPreview := string(respBytes)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}
		return nil, fmt.Errorf("decode generation response error: %v | body: %s", err, bodyPreview)
	}
	if len(out) == 0 || strings.TrimSpace(out[0].GeneratedText) == "" {
		return nil, fmt.Errorf("empty generation response")
	}

	return ParseNutritionProfile(out[0].GeneratedText)
}

// ParseNutritionProfile extracts the JSON nutrition profile from a model
// reply, which may be wrapped in markdown fences or prose despite the prompt.
func ParseNutritionProfile(text string) (*models.NutritionProfile, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in model reply")
	}

	var profile models.NutritionProfile
	if err := json.Unmarshal([]byte(text[start:end+1]), &profile); err != nil {
		return nil, fmt.Errorf("decode nutrition profile: %w", err)
	}

	if strings.TrimSpace(profile.Name) == "" {
		return nil, fmt.Errorf("nutrition profile missing name")
	}
	if profile.Calories < 0 {
		return nil, fmt.Errorf("nutrition profile has negative calories")
	}
	for i := range profile.Components {
		if profile.Components[i].Type == "" {
			profile.Components[i].Type = "food"
		}
	}
	return &profile, nil
}
