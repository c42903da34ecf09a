package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObjectPlainObject(t *testing.T) {
	raw := `{"has_content": true}`
	assert.Equal(t, raw, ExtractJSONObject(raw))
}

func TestExtractJSONObjectSurroundedByText(t *testing.T) {
	raw := "Here is the result:\n```json\n{\"has_content\": false, \"facts\": []}\n```\nHope this helps."
	assert.Equal(t, `{"has_content": false, "facts": []}`, ExtractJSONObject(raw))
}

func TestExtractJSONObjectArray(t *testing.T) {
	raw := "prefix [1, 2, 3] suffix"
	assert.Equal(t, "[1, 2, 3]", ExtractJSONObject(raw))
}

func TestExtractJSONObjectBareCodeFence(t *testing.T) {
	raw := "```json\n{\"verdict\": \"passed\"}\n```"
	assert.Equal(t, `{"verdict": "passed"}`, ExtractJSONObject(raw))
}

func TestDecodeStrictRejectsTrailingContent(t *testing.T) {
	var v struct {
		Verdict string `json:"verdict"`
	}
	err := DecodeStrict(`{"verdict": "passed"} {"verdict": "refused"}`, &v)
	assert.Error(t, err)
}

func TestDecodeStrictRejectsUnknownFields(t *testing.T) {
	var v struct {
		HasContent bool `json:"has_content"`
	}
	err := DecodeStrict(`{"has_content": true, "surprise": 1}`, &v)
	assert.Error(t, err)
}

func TestDecodeStrictEmptyInput(t *testing.T) {
	var v struct{}
	err := DecodeStrict("   ", &v)
	assert.Error(t, err)
}

func TestDecodeStrictHappyPath(t *testing.T) {
	var v struct {
		Facts []struct {
			Text string `json:"text"`
		} `json:"facts"`
	}
	require.NoError(t, DecodeStrict("output:\n{\"facts\":[{\"text\":\"a\"}]}", &v))
	require.Len(t, v.Facts, 1)
	assert.Equal(t, "a", v.Facts[0].Text)
}
