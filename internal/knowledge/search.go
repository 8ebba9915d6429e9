package knowledge

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/vet-eye/serviceflow/internal/models"
)

// Scoring weights and thresholds for the ranked search pipeline.
const (
	keywordWeight = 0.4
	symptomWeight = 0.3
	contentWeight = 0.3

	troubleshootingThreshold = 0.2
	documentThreshold        = 0.1
	usageGuideThreshold      = 0.15

	// minCandidates is the point below which lower-priority sources are
	// consulted as well.
	minCandidates = 3
	// maxResults caps the ranked output.
	maxResults = 5

	// minSymptomLength excludes very short symptom strings from fuzzy matching.
	minSymptomLength = 5
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// tokenize splits text into lowercase word tokens, Unicode-aware.
func tokenize(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// FindSolutions ranks corpus records against a free-text problem description
// for the given device model. It returns at most five candidates sorted by
// descending relevance (ties keep discovery order) and a one-line summary.
// Deterministic and stateless: identical corpus and inputs yield identical
// output.
func (b *Base) FindSolutions(model, query string) ([]models.SolutionCandidate, string) {
	slog.Info("knowledge.FindSolutions: searching", "model", model, "queryLength", len(query))

	tokens := tokenize(query)

	candidates := b.searchTroubleshooting(model, query, tokens)
	if len(candidates) < minCandidates {
		candidates = append(candidates, b.searchDocuments(model, tokens)...)
	}
	if len(candidates) < minCandidates {
		candidates = append(candidates, b.searchUsageGuides(model, query)...)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Relevance > candidates[j].Relevance
	})
	if len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}

	summary := summarize(candidates)
	slog.Debug("knowledge.FindSolutions: done", "candidates", len(candidates))
	return candidates, summary
}

// searchTroubleshooting scores the highest-priority source with a weighted
// combination of keyword, symptom and content similarity.
func (b *Base) searchTroubleshooting(model, query string, tokens []string) []models.SolutionCandidate {
	var matches []models.SolutionCandidate
	queryLower := strings.ToLower(query)

	for _, entry := range b.Troubleshooting {
		if entry.Metadata.DeviceModel != "" && entry.Metadata.DeviceModel != model {
			continue
		}

		content := entry.Problem + " " + entry.Solution
		relevance := keywordWeight*keywordMatch(tokens, entry.Metadata.Keywords) +
			symptomWeight*symptomMatch(queryLower, entry.Metadata.Symptoms) +
			contentWeight*Similarity(queryLower, strings.ToLower(content))

		if relevance > troubleshootingThreshold {
			matches = append(matches, models.SolutionCandidate{
				Content:   fmt.Sprintf("Problem: %s\n\nRozwiązanie: %s", entry.Problem, entry.Solution),
				Relevance: relevance,
				Kind:      models.KindTroubleshooting,
			})
		}
	}
	return matches
}

// searchDocuments scores documents by lexical token overlap. A document is
// skipped only when both its model and the requested model are set and differ.
func (b *Base) searchDocuments(model string, tokens []string) []models.SolutionCandidate {
	var matches []models.SolutionCandidate

	for _, doc := range b.Documents {
		docModel := doc.Metadata.DeviceModel
		if model != "" && model != "unknown" && docModel != "" && docModel != model {
			continue
		}

		relevance := tokenOverlap(tokens, strings.ToLower(doc.Content))
		if relevance > documentThreshold {
			matches = append(matches, models.SolutionCandidate{
				Content:   doc.Content,
				Relevance: relevance,
				Kind:      models.KindDocument,
			})
		}
	}
	return matches
}

// searchUsageGuides scores guides by fuzzy similarity to their content.
func (b *Base) searchUsageGuides(model, query string) []models.SolutionCandidate {
	var matches []models.SolutionCandidate
	queryLower := strings.ToLower(query)

	for _, guide := range b.UsageGuides {
		if guide.Metadata.DeviceModel != "" && guide.Metadata.DeviceModel != model {
			continue
		}

		relevance := Similarity(queryLower, strings.ToLower(guide.Content))
		if relevance > usageGuideThreshold {
			matches = append(matches, models.SolutionCandidate{
				Content:   fmt.Sprintf("Instrukcja: %s\n\n%s", guide.Title, guide.Content),
				Relevance: relevance,
				Kind:      models.KindUsageGuide,
			})
		}
	}
	return matches
}

// keywordMatch is the fraction of query tokens that are a substring of, or
// contain, any entry keyword.
func keywordMatch(tokens, keywords []string) float64 {
	if len(keywords) == 0 || len(tokens) == 0 {
		return 0.0
	}

	matched := 0
	for _, token := range tokens {
		for _, kw := range keywords {
			kwLower := strings.ToLower(kw)
			if strings.Contains(kwLower, token) || strings.Contains(token, kwLower) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(tokens))
}

// symptomMatch is the best fuzzy similarity between the query and any symptom
// longer than minSymptomLength characters.
func symptomMatch(queryLower string, symptoms []string) float64 {
	best := 0.0
	for _, symptom := range symptoms {
		if len([]rune(symptom)) <= minSymptomLength {
			continue
		}
		if score := Similarity(queryLower, strings.ToLower(symptom)); score > best {
			best = score
		}
	}
	return best
}

// tokenOverlap is the fraction of tokens present in the lowercase content.
func tokenOverlap(tokens []string, contentLower string) float64 {
	if len(tokens) == 0 {
		return 0.0
	}
	matched := 0
	for _, token := range tokens {
		if strings.Contains(contentLower, token) {
			matched++
		}
	}
	return float64(matched) / float64(len(tokens))
}

// summarize produces the one-line result summary. Wording follows the
// dominant source kind; troubleshooting matches take precedence.
func summarize(candidates []models.SolutionCandidate) string {
	if len(candidates) == 0 {
		return "Nie znaleziono dopasowań w bazie wiedzy dla tego problemu."
	}

	hasTroubleshooting := false
	hasDocument := false
	for _, c := range candidates {
		switch c.Kind {
		case models.KindTroubleshooting:
			hasTroubleshooting = true
		case models.KindDocument:
			hasDocument = true
		}
	}

	count := len(candidates)
	switch {
	case hasTroubleshooting:
		return fmt.Sprintf("Znaleziono %d potencjalnych rozwiązań tego problemu w bazie wiedzy.", count)
	case hasDocument:
		return fmt.Sprintf("Znaleziono %d powiązanych informacji w dokumentacji technicznej.", count)
	default:
		return fmt.Sprintf("Znaleziono %d powiązanych informacji w bazie wiedzy.", count)
	}
}
