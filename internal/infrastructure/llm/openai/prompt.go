package openai

import (
	"fmt"
	"strings"

	"github.com/podoring/wine-search/internal/core/domain"
)

const recommendSystemPrompt = `You are a sommelier at a wine kiosk.
Pick wines for the customer only from the provided catalog list.
Return strict JSON object: {"recommendations":[{"id":<number>,"reason":<string>}]}.
The reason is one short sentence for the customer. No markdown, no extra keys.`

func buildRecommendPrompt(query string, wines []domain.WineRecord, limit int) string {
	var catalog strings.Builder
	for _, wine := range wines {
		catalog.WriteString(fmt.Sprintf("id=%d %s", wine.ID, wine.Title))
		if wine.Type != "" {
			catalog.WriteString(" | " + string(wine.Type))
		}
		writeField := func(label string, v *string) {
			if v != nil && *v != "" {
				catalog.WriteString(fmt.Sprintf(" | %s=%s", label, *v))
			}
		}
		writeField("variety", wine.Variety)
		writeField("country", wine.Country)
		if wine.Price != nil {
			catalog.WriteString(fmt.Sprintf(" | price=%.0f", *wine.Price))
		}
		if wine.Rating != nil {
			catalog.WriteString(fmt.Sprintf(" | rating=%.1f", *wine.Rating))
		}
		writeField("taste", wine.Taste)
		writeField("description", wine.Description)
		catalog.WriteString("\n")
	}

	return fmt.Sprintf(`Customer request:
%s

Catalog:
%s
Pick up to %d wines by id.`, query, catalog.String(), limit)
}
