package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/placement-prep/internal/types"
	"github.com/sirupsen/logrus"
)

// MaxSources caps the number of sources attached to one agent result.
const MaxSources = 8

// SearchQueries returns the web queries used to ground an agent kind.
// Kinds that do not use search get none.
func SearchQueries(kind types.AgentKind, input types.UserInput) []string {
	company := input.CompanyName
	role := input.JobRole

	switch kind {
	case types.AgentCompanyResearch:
		return []string{
			company + " company values mission culture",
			company + " products services recent news",
		}
	case types.AgentRecruitmentProcess:
		return []string{
			company + " " + role + " recruitment process interview rounds",
			company + " online assessment pattern " + role,
		}
	case types.AgentPreviousQuestions:
		return []string{
			company + " " + role + " interview questions",
			company + " interview experience " + role,
		}
	default:
		return nil
	}
}

// Gather runs every query for kind and returns the deduplicated hits, capped at
// MaxSources. Failing queries are logged and skipped.
func Gather(ctx context.Context, s Searcher, kind types.AgentKind, input types.UserInput, log *logrus.Entry) []Hit {
	if s == nil {
		return nil
	}
	var all []Hit
	for _, q := range SearchQueries(kind, input) {
		hits, err := s.Search(ctx, q, MaxSources)
		if err != nil {
			if log != nil {
				log.WithError(err).WithField("query", q).Warn("search query failed")
			}
			continue
		}
		all = append(all, hits...)
	}
	all = DedupHits(all)
	if len(all) > MaxSources {
		all = all[:MaxSources]
	}
	return all
}

// DedupHits keeps the first hit for each URI, in order.
func DedupHits(hits []Hit) []Hit {
	seen := make(map[string]bool, len(hits))
	out := make([]Hit, 0, len(hits))
	for _, h := range hits {
		if h.URI == "" || seen[h.URI] {
			continue
		}
		seen[h.URI] = true
		out = append(out, h)
	}
	return out
}

// DedupSources keeps exactly one source per URI, retaining the first title.
// A blank title is replaced by the URI.
func DedupSources(sources []types.GroundingSource) []types.GroundingSource {
	seen := make(map[string]bool, len(sources))
	out := make([]types.GroundingSource, 0, len(sources))
	for _, s := range sources {
		if s.URI == "" || seen[s.URI] {
			continue
		}
		seen[s.URI] = true
		if strings.TrimSpace(s.Title) == "" {
			s.Title = s.URI
		}
		out = append(out, s)
	}
	return out
}

// ToSources converts hits to grounding sources.
func ToSources(hits []Hit) []types.GroundingSource {
	sources := make([]types.GroundingSource, 0, len(hits))
	for _, h := range hits {
		sources = append(sources, types.GroundingSource{URI: h.URI, Title: h.Title})
	}
	return DedupSources(sources)
}

// FormatContext renders hits as a numbered list for inclusion in a prompt.
func FormatContext(hits []Hit) string {
	var sb strings.Builder
	for i, h := range hits {
		title := h.Title
		if title == "" {
			title = h.URI
		}
		fmt.Fprintf(&sb, "[%d] %s (%s)\n", i+1, title, h.URI)
		if snippet := strings.TrimSpace(h.Snippet); snippet != "" {
			fmt.Fprintf(&sb, "    %s\n", strings.ReplaceAll(snippet, "\n", " "))
		}
	}
	return sb.String()
}
