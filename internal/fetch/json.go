package fetch

import (
	jsoniter "github.com/json-iterator/go"

	apperrors "github.com/lepinkainen/editiondiff/internal/errors"
)

// numberJSON keeps JSON numbers as json.Number so ids and prices print as sent.
var numberJSON = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

// DecodeJSON unmarshals body into target. Malformed input yields an
// *errors.ParseError naming source.
func DecodeJSON(source, body string, target any) error {
	if err := numberJSON.UnmarshalFromString(body, target); err != nil {
		return apperrors.NewParseError(source, err)
	}
	return nil
}
