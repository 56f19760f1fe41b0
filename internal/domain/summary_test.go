package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummary_UnmarshalLLMResponse(t *testing.T) {
	payload := `{
		"abstract": "The paper studies X.",
		"motivation": "X is hard.",
		"contribution": "A new method.",
		"what_does_paper_do": "Benchmarks on Y.",
		"how_does_paper_do": "Via Z.",
		"limitations_challenges": "Only small datasets.",
		"future_work": "Scale up.",
		"conclusion": "Method works."
	}`

	var s Summary
	require.NoError(t, json.Unmarshal([]byte(payload), &s))

	assert.Equal(t, "The paper studies X.", s.Abstract)
	assert.Equal(t, "Benchmarks on Y.", s.Experiments)
	assert.Equal(t, "Via Z.", s.Methodology)
	assert.Equal(t, "Only small datasets.", s.Limitations)
	assert.False(t, s.IsEmpty())
}

func TestSummary_Sections(t *testing.T) {
	s := Summary{Abstract: "a", Conclusion: "c"}

	sections := s.Sections()
	require.Len(t, sections, 8)

	assert.Equal(t, "abstract", sections[0].Key)
	assert.Equal(t, "Abstract", sections[0].Title)
	assert.Equal(t, "a", sections[0].Body)
	assert.Equal(t, "conclusion", sections[7].Key)
	assert.Equal(t, "c", sections[7].Body)
}

func TestSummary_IsEmpty(t *testing.T) {
	assert.True(t, (&Summary{}).IsEmpty())
	assert.True(t, (&Summary{Abstract: "   "}).IsEmpty())
	assert.False(t, (&Summary{FutureWork: "more"}).IsEmpty())
}

func TestDomainError_IsType(t *testing.T) {
	base := ValidationError("bad input", nil)
	wrapped := StorageError("save failed", base)

	assert.True(t, IsType(base, ErrorTypeValidation))
	assert.True(t, IsType(wrapped, ErrorTypeStorage))
	assert.True(t, IsType(wrapped, ErrorTypeValidation))
	assert.False(t, IsType(wrapped, ErrorTypeAPI))
	assert.False(t, IsType(nil, ErrorTypeValidation))
}

func TestDomainError_Error(t *testing.T) {
	err := APIError("request failed", assert.AnError)
	assert.Contains(t, err.Error(), "[api]")
	assert.Contains(t, err.Error(), "request failed")
	assert.ErrorIs(t, err, assert.AnError)
}
