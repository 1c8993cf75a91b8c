package storefront

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/gjson"

	apperrors "github.com/lepinkainen/editiondiff/internal/errors"
	"github.com/lepinkainen/editiondiff/internal/fetch"
)

var displayJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// ProductInfo is a parsed product-info response.
// The document is kept as gjson so key order survives for LocateWork.
type ProductInfo struct {
	Code string
	root gjson.Result
}

// ParseProductInfo validates body as JSON and wraps it for code.
func ParseProductInfo(code, body string) (*ProductInfo, error) {
	if !gjson.Valid(body) {
		return nil, apperrors.NewParseError("storefront", nil)
	}
	return &ProductInfo{
		Code: NormalizeCode(code),
		root: gjson.Parse(body),
	}, nil
}

// Work returns the work object for the product's own code.
func (p *ProductInfo) Work() Work {
	return LocateWork(p.root, p.Code)
}

// LocateWork finds the work object inside a product-info document.
//
// The endpoint usually keys the work by its code, but sometimes uses another
// key, so this is a heuristic: an object stored under exactly code wins,
// otherwise the first object value in document order is used. Documents with
// no object values (the endpoint answers [] for unknown codes) give nil.
func LocateWork(root gjson.Result, code string) Work {
	if !root.IsObject() {
		return nil
	}

	var exact, first gjson.Result
	root.ForEach(func(key, value gjson.Result) bool {
		if !value.IsObject() {
			return true
		}
		if key.String() == code {
			exact = value
			return false
		}
		if !first.Exists() {
			first = value
		}
		return true
	})

	picked := first
	if exact.Exists() {
		picked = exact
	}
	if !picked.Exists() {
		return nil
	}

	var work Work
	if err := fetch.DecodeJSON("storefront", picked.Raw, &work); err != nil {
		return nil
	}
	return work
}

// Work is the storefront's description of one product. No schema is assumed
// beyond the fields read by LanguageEditions and the report.
type Work map[string]any

// Display renders a field for console output; missing fields render as "-".
func (w Work) Display(key string) string {
	v, ok := w[key]
	if !ok || v == nil {
		return "-"
	}
	switch val := v.(type) {
	case string:
		return val
	case map[string]any, []any:
		out, err := displayJSON.MarshalToString(val)
		if err != nil {
			return "-"
		}
		return out
	default:
		return stringify(val)
	}
}
