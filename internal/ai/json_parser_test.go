package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestParseDirect(t *testing.T) {
	result := Parse[sample](`{"name": "a", "count": 2}`)
	require.True(t, result.Success)
	assert.Equal(t, sample{Name: "a", Count: 2}, result.Data)
}

func TestParseCodeFenced(t *testing.T) {
	result := Parse[sample]("```json\n{\"name\": \"a\", \"count\": 2}\n```")
	require.True(t, result.Success)
	assert.Equal(t, "a", result.Data.Name)
}

func TestParseFenceWithoutLanguage(t *testing.T) {
	result := Parse[sample]("```\n{\"name\": \"b\"}\n```")
	require.True(t, result.Success)
	assert.Equal(t, "b", result.Data.Name)
}

func TestParseTrailingComma(t *testing.T) {
	result := Parse[sample](`{"name": "a", "count": 2,}`)
	require.True(t, result.Success)
	assert.Equal(t, 2, result.Data.Count)
}

func TestParseEmbeddedInProse(t *testing.T) {
	result := Parse[sample]("Here is my answer:\n{\"name\": \"x\", \"count\": 1}\nHope that helps!")
	require.True(t, result.Success)
	assert.Equal(t, "x", result.Data.Name)
}

func TestParseFailures(t *testing.T) {
	assert.False(t, Parse[sample]("").Success)
	assert.False(t, Parse[sample]("no json here at all").Success)
}

func TestExtractCodeBlock(t *testing.T) {
	assert.Equal(t, "package main", ExtractCodeBlock("```go\npackage main\n```"))
	assert.Equal(t, "plain text", ExtractCodeBlock("plain text"))
}
