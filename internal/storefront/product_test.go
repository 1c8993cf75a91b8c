package storefront

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	apperrors "github.com/lepinkainen/editiondiff/internal/errors"
)

func TestParseProductInfoRejectsInvalidJSON(t *testing.T) {
	_, err := ParseProductInfo("RJ01348345", `<html>maintenance</html>`)
	require.Error(t, err)
	assert.True(t, apperrors.IsParseError(err))
}

func TestParseProductInfoNormalizesCode(t *testing.T) {
	info, err := ParseProductInfo("  rj01348345 ", `{"RJ01348345":{"work_name":"base"}}`)
	require.NoError(t, err)
	assert.Equal(t, "RJ01348345", info.Code)
	assert.Equal(t, "base", info.Work().Display("work_name"))
}

func TestLocateWork(t *testing.T) {
	testCases := []struct {
		name     string
		body     string
		code     string
		wantName string
		wantNil  bool
	}{
		{
			name:     "exact key wins even when not first",
			body:     `{"other":{"work_name":"first"},"RJ01348345":{"work_name":"exact"}}`,
			code:     "RJ01348345",
			wantName: "exact",
		},
		{
			name:     "falls back to first object in document order",
			body:     `{"count":3,"zzz":{"work_name":"first"},"aaa":{"work_name":"second"}}`,
			code:     "RJ01348345",
			wantName: "first",
		},
		{
			name:     "exact key holding a scalar is ignored",
			body:     `{"RJ01348345":"nope","rj01348345":{"work_name":"lowercase key"}}`,
			code:     "RJ01348345",
			wantName: "lowercase key",
		},
		{
			name:    "no object values",
			body:    `{"a":1,"b":[1,2]}`,
			code:    "RJ01348345",
			wantNil: true,
		},
		{
			name:    "array root",
			body:    `[]`,
			code:    "RJ01348345",
			wantNil: true,
		},
		{
			name:    "empty object",
			body:    `{}`,
			code:    "RJ01348345",
			wantNil: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			work := LocateWork(gjson.Parse(tc.body), tc.code)
			if tc.wantNil {
				assert.Nil(t, work)
				return
			}
			require.NotNil(t, work)
			assert.Equal(t, tc.wantName, work.Display("work_name"))
		})
	}
}

func TestWorkDisplay(t *testing.T) {
	info, err := ParseProductInfo("RJ01", `{"RJ01":{
		"work_name":"名前",
		"price":1100,
		"rate_average_2dp":4.72,
		"is_sale":false,
		"work_image":null,
		"tags":["a","b"]
	}}`)
	require.NoError(t, err)
	work := info.Work()

	assert.Equal(t, "名前", work.Display("work_name"))
	assert.Equal(t, "1100", work.Display("price"))
	assert.Equal(t, "4.72", work.Display("rate_average_2dp"))
	assert.Equal(t, "false", work.Display("is_sale"))
	assert.Equal(t, "-", work.Display("work_image"))
	assert.Equal(t, "-", work.Display("missing"))
	assert.Equal(t, `["a","b"]`, work.Display("tags"))
}

func TestWorkDisplayOnNilWork(t *testing.T) {
	var work Work
	assert.Equal(t, "-", work.Display("work_name"))
}
