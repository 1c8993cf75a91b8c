package archive

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Field names tried in order on each track node.
var (
	titleFields    = []string{"title", "name", "fileName"}
	childFields    = []string{"children", "child", "items", "tracks"}
	mediaURLFields = []string{"mediaDownloadUrl", "streamUrl", "mediaStreamUrl", "mediaUrl", "url"}
)

// FlattenTracks walks a track tree depth-first and returns the slash-joined
// path of every leaf, in the order the nodes appear.
//
// A leaf is a node with a media URL and no children. A node that has both a
// URL and children is not emitted itself; only its children are walked.
// Non-object entries are skipped.
func FlattenTracks(tree any) []string {
	nodes, ok := tree.([]any)
	if !ok {
		return nil
	}

	var out []string
	walkTracks(nodes, "", &out)
	return out
}

func walkTracks(nodes []any, prefix string, out *[]string) {
	for _, raw := range nodes {
		node, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		title := strings.TrimSpace(scalarString(firstTruthy(node, titleFields)))
		children := firstTruthy(node, childFields)
		path := strings.Trim(prefix+"/"+title, "/")
		mediaURL := firstTruthy(node, mediaURLFields)

		if mediaURL != nil && children == nil {
			leaf := path
			if leaf == "" {
				leaf = title
			}
			if leaf == "" {
				leaf = scalarString(mediaURL)
			}
			*out = append(*out, leaf)
		}

		if list, ok := children.([]any); ok && len(list) > 0 {
			walkTracks(list, path, out)
		}
	}
}

// firstTruthy returns the first non-empty value among keys, or nil.
func firstTruthy(node map[string]any, keys []string) any {
	for _, k := range keys {
		if v := node[k]; truthy(v) {
			return v
		}
	}
	return nil
}

func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case bool:
		return val
	case json.Number:
		f, err := val.Float64()
		return err != nil || f != 0
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		return true
	}
}

// scalarString renders a JSON scalar; empty values give "".
func scalarString(v any) string {
	if !truthy(v) {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
