package archive

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// maxLeafSamples caps Summary.LeafSamples.
const maxLeafSamples = 10

// Summary describes the archive's best match for one keyword.
type Summary struct {
	Keyword     string
	Hit         bool
	ID          string
	SourceID    string
	Title       string
	Tags        []string
	LeafCount   int
	LeafSamples []string
}

// Summarize searches for keyword and, on a hit, counts the leaves of the
// first result's track tree. Search failures are returned; track failures
// are logged and count as zero leaves.
func (c *Client) Summarize(ctx context.Context, keyword string) (Summary, error) {
	res, err := c.SearchWithFallback(ctx, keyword)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize %q: %w", strings.TrimSpace(keyword), err)
	}

	works := res.Works()
	if len(works) == 0 {
		return Summary{Keyword: keyword}, nil
	}
	work, ok := works[0].(map[string]any)
	if !ok {
		return Summary{Keyword: keyword}, nil
	}

	s := Summary{
		Keyword:  keyword,
		Hit:      true,
		ID:       strings.TrimSpace(scalarString(work["id"])),
		SourceID: strings.TrimSpace(scalarString(work["source_id"])),
		Title:    strings.TrimSpace(scalarString(work["title"])),
		Tags:     tagNames(work["tags"]),
	}

	if s.ID == "" {
		return s, nil
	}

	var leaves []string
	tree, err := c.Tracks(ctx, s.ID)
	if err != nil {
		slog.Warn("Archive track list unavailable, counting no leaves", "id", s.ID, "error", err)
	} else {
		leaves = FlattenTracks(tree)
	}

	s.LeafCount = len(leaves)
	s.LeafSamples = slices.Clone(leaves[:min(len(leaves), maxLeafSamples)])
	return s, nil
}

func tagNames(raw any) []string {
	list, _ := raw.([]any)

	var names []string
	for _, t := range list {
		tag, ok := t.(map[string]any)
		if !ok {
			continue
		}
		if name := scalarString(tag["name"]); name != "" {
			names = append(names, name)
		}
	}
	return names
}
