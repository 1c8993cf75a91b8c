package storefront

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// editionListFields are the work fields that may hold the edition list, in
// the order they are tried. The endpoint currently only uses dl_count_items.
var editionListFields = []string{"dl_count_items"}

// Edition is one language variant of a storefront product.
type Edition struct {
	Lang         string
	WorkNo       string
	Label        string
	DisplayOrder int
}

// LanguageEditions extracts the language editions of work keyed by language
// tag. Entries without a language tag or edition code are skipped, and a
// later entry for the same tag replaces an earlier one.
func LanguageEditions(work Work) map[string]Edition {
	out := make(map[string]Edition)

	for _, raw := range editionItems(work) {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if strings.TrimSpace(stringField(item, "edition_type")) != "language" {
			continue
		}

		lang := strings.TrimSpace(stringField(item, "lang"))
		workNo := NormalizeCode(stringField(item, "workno"))
		label := stringField(item, "display_label")
		if label == "" {
			label = stringField(item, "label")
		}
		if lang == "" || workNo == "" {
			continue
		}

		out[lang] = Edition{
			Lang:         lang,
			WorkNo:       workNo,
			Label:        strings.TrimSpace(label),
			DisplayOrder: intValue(item["display_order"]),
		}
	}

	return out
}

// SortEditions orders editions by display order, then language tag.
func SortEditions(editions map[string]Edition) []Edition {
	sorted := make([]Edition, 0, len(editions))
	for _, e := range editions {
		sorted = append(sorted, e)
	}
	slices.SortFunc(sorted, func(a, b Edition) int {
		if c := cmp.Compare(a.DisplayOrder, b.DisplayOrder); c != 0 {
			return c
		}
		return cmp.Compare(a.Lang, b.Lang)
	})
	return sorted
}

func editionItems(work Work) []any {
	for _, field := range editionListFields {
		if items, ok := work[field].([]any); ok && len(items) > 0 {
			return items
		}
	}
	return nil
}

func stringField(item map[string]any, key string) string {
	s, _ := item[key].(string)
	return s
}

// intValue truncates numeric values; anything else is 0.
func intValue(v any) int {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
		if f, err := n.Float64(); err == nil {
			return int(f)
		}
	case float64:
		return int(n)
	case int:
		return n
	}
	return 0
}

func stringify(v any) string {
	switch val := v.(type) {
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(val)
	}
}
