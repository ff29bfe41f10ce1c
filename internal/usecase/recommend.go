package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"commerce-agent/internal/catalog"
	"commerce-agent/internal/domain"
)

// recommend runs the recommendation sub-flow: project the category's catalog
// matches into a candidate list, ask the oracle for one categorical choice,
// and resolve the chosen id back into a full product.
//
// The oracle's choice is authoritative; no ranking or scoring happens here.
// Oracle and decode failures degrade to a fallback reply with no
// recommendation; catalog infrastructure failures surface as real errors.
func (s *ChatService) recommend(ctx context.Context, category, preferenceSummary string) (ChatOutput, error) {
	if strings.TrimSpace(category) == "" {
		// The interpreter passes the category through unvalidated, so an
		// empty value can reach this point. Treat it like a category with no
		// matches.
		return ChatOutput{Reply: replyNoCandidates}, nil
	}

	products, err := s.catalog.FindByCategory(ctx, category)
	if err != nil {
		return ChatOutput{}, newError(ErrorInternal, "catalog_query_error", err)
	}
	if len(products) == 0 {
		return ChatOutput{Reply: replyNoCandidates}, nil
	}

	candidates := make([]domain.Candidate, 0, len(products))
	for _, p := range products {
		candidates = append(candidates, domain.Candidate{ID: p.ID, Name: p.Name})
	}

	prompt, err := buildChoicePrompt(preferenceSummary, candidates)
	if err != nil {
		return ChatOutput{}, newError(ErrorInternal, "choice_prompt_error", err)
	}

	raw, err := s.llm.Chat(ctx, s.openaiModel, []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: prompt},
	}, recommendationChoiceFormat)
	if err != nil {
		slog.Warn("recommendation choice call failed", "category", category, "err", err)
		return ChatOutput{Reply: replyNoMatch}, nil
	}

	choice, err := parseRecommendationChoice(raw)
	if err != nil {
		slog.Warn("recommendation choice failed schema decode", "category", category, "err", err)
		return ChatOutput{Reply: replyNoMatch}, nil
	}

	if !candidateListContains(candidates, choice.ItemID) {
		// The oracle picked an id it was never offered. Resolving it anyway
		// could surface a product from a different category.
		slog.Warn("recommendation choice outside candidate list", "category", category, "itemId", choice.ItemID)
		return ChatOutput{Reply: replyProductGone}, nil
	}

	product, err := s.catalog.FindByID(ctx, choice.ItemID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			// Hallucinated or stale id; distinct from the empty-category case.
			slog.Warn("recommended product did not resolve", "category", category, "itemId", choice.ItemID)
			return ChatOutput{Reply: replyProductGone}, nil
		}
		return ChatOutput{}, newError(ErrorInternal, "catalog_lookup_error", err)
	}

	return ChatOutput{Reply: replyRecommendation, Recommendation: &product}, nil
}

func candidateListContains(candidates []domain.Candidate, id string) bool {
	for _, c := range candidates {
		if c.ID == id {
			return true
		}
	}
	return false
}
