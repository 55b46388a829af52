package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"google.golang.org/genai"

	"folioshare-api/internal/config"
	"folioshare-api/internal/models"
)

const (
	unavailableText = "AI insights unavailable. Please configure the API key."
	degradedSummary = "An error occurred while communicating with the AI. The portfolio has been saved, but AI insights could not be generated at this time."
)

// InsightService produces narrative portfolio analysis via Gemini. It
// always returns a structurally complete bundle: when the provider is
// unreachable, unconfigured or times out, the bundle falls back to
// placeholder prose plus locally computed sector allocations, and the
// degraded flag is set.
type InsightService struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func NewInsightService(ctx context.Context, cfg *config.Config) *InsightService {
	s := &InsightService{
		model:   cfg.GeminiModel,
		timeout: cfg.InsightTimeout,
	}

	if cfg.GeminiKey == "" {
		return s
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		log.Printf("⚠️  Failed to initialize Gemini client: %v", err)
		return s
	}

	s.client = client
	return s
}

// Analyze returns the insight bundle for the given valued holdings and
// cash balance. The second return value reports whether the bundle is a
// degraded placeholder rather than live AI output.
func (s *InsightService) Analyze(ctx context.Context, holdings []models.ValuedHolding, cash float64) (models.InsightBundle, bool) {
	allocations := SectorAllocations(holdings)

	if s.client == nil {
		return fallbackBundle(allocations, "Portfolio analysis generated. AI-powered insights are unavailable because the Gemini API key has not been configured."), true
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	bundle, err := s.generate(callCtx, holdings, cash)
	if err != nil {
		log.Printf("⚠️  Insight generation failed, using fallback: %v", err)
		return fallbackBundle(allocations, degradedSummary), true
	}

	// The model computes its own allocations; backfill from local data
	// if it returned none so the bundle is never partial.
	if len(bundle.SectorAllocations) == 0 {
		bundle.SectorAllocations = allocations
	}

	return bundle, false
}

func (s *InsightService) generate(ctx context.Context, holdings []models.ValuedHolding, cash float64) (models.InsightBundle, error) {
	totalValue := cash
	descriptions := make([]string, 0, len(holdings))
	for _, h := range holdings {
		totalValue += h.Value
		descriptions = append(descriptions, fmt.Sprintf("%g of %s (value: $%.2f, sector: %s)", h.Quantity, h.Ticker, h.Value, h.Sector))
	}

	prompt := fmt.Sprintf(`Analyze the following investment portfolio and generate insights.

Portfolio Data:
- Total Portfolio Value: $%.2f
- Cash Balance: $%.2f
- Stock Holdings: %s

Provide the following analysis in JSON format:
1. summary: A brief, one-paragraph overview of the portfolio's composition and key characteristics.
2. sectorExposure: A short paragraph describing the main sector concentrations.
3. diversificationAnalysis: A short paragraph analyzing the portfolio's diversification. Mention if it's concentrated or well-diversified and potential risks.
4. investmentThesis: A potential investment thesis based on the holdings. What story does this collection of stocks tell?
5. sectorAllocations: An array of objects, each representing a sector's total value and its percentage of the total stock value. Cash is not a sector.`,
		totalValue, cash, strings.Join(descriptions, ", "))

	result, err := s.client.Models.GenerateContent(ctx, s.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   insightSchema(),
	})
	if err != nil {
		return models.InsightBundle{}, err
	}

	var bundle models.InsightBundle
	if err := json.Unmarshal([]byte(strings.TrimSpace(result.Text())), &bundle); err != nil {
		return models.InsightBundle{}, fmt.Errorf("unexpected insight response: %w", err)
	}

	return bundle, nil
}

func insightSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"summary":                 {Type: genai.TypeString},
			"sectorExposure":          {Type: genai.TypeString},
			"diversificationAnalysis": {Type: genai.TypeString},
			"investmentThesis":        {Type: genai.TypeString},
			"sectorAllocations": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"sector":     {Type: genai.TypeString},
						"value":      {Type: genai.TypeNumber},
						"percentage": {Type: genai.TypeNumber},
					},
					Required: []string{"sector", "value", "percentage"},
				},
			},
		},
		Required: []string{"summary", "sectorExposure", "diversificationAnalysis", "investmentThesis", "sectorAllocations"},
	}
}

func fallbackBundle(allocations []models.SectorAllocation, summary string) models.InsightBundle {
	return models.InsightBundle{
		Summary:                 summary,
		SectorExposure:          unavailableText,
		DiversificationAnalysis: unavailableText,
		InvestmentThesis:        unavailableText,
		SectorAllocations:       allocations,
	}
}

// SectorAllocations groups stock value by sector, largest first.
// Percentages are shares of total stock value and sum to 100; cash is
// excluded from sector grouping.
func SectorAllocations(holdings []models.ValuedHolding) []models.SectorAllocation {
	totalStockValue := 0.0
	for _, h := range holdings {
		totalStockValue += h.Value
	}
	if totalStockValue == 0 {
		return []models.SectorAllocation{}
	}

	bySector := make(map[string]float64)
	for _, h := range holdings {
		sector := h.Sector
		if sector == "" {
			sector = "Other"
		}
		bySector[sector] += h.Value
	}

	allocations := make([]models.SectorAllocation, 0, len(bySector))
	for sector, value := range bySector {
		allocations = append(allocations, models.SectorAllocation{
			Sector:     sector,
			Value:      value,
			Percentage: (value / totalStockValue) * 100,
		})
	}

	sort.Slice(allocations, func(i, j int) bool {
		return allocations[i].Value > allocations[j].Value
	})

	return allocations
}
