package agronomy

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agromitra/agromitra/llm"
)

// scriptedClient returns one canned JSON body per call, in order.
type scriptedClient struct {
	responses []string
	requests  []llm.Request
	err       error
}

func (s *scriptedClient) CompleteStructured(_ context.Context, req llm.Request, out any) (*llm.Response, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	idx := len(s.requests) - 1
	body := s.responses[idx%len(s.responses)]
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return nil, err
	}
	return &llm.Response{Content: body}, nil
}

func TestRegenerateOnceCarriesIssuesAndPreviousOutput(t *testing.T) {
	client := &scriptedClient{responses: []string{`{"mono_crops":[{"crop_name":"Maize"}]}`}}
	original := llm.Request{
		System:       "system prompt",
		Contents:     []llm.Content{llm.TextContent("user", `{"farm":"f1"}`)},
		JSONResponse: true,
	}
	previous := &Recommendation{MonoCrops: []MonoCrop{{CropName: "Paddy"}}}
	issues := []string{`mono crop "Paddy": sowing window start_date 2024-01-10 is after end_date 2024-01-05`}

	candidate, err := RegenerateOnce(context.Background(), client, original, issues, previous)
	require.NoError(t, err)
	require.Len(t, candidate.MonoCrops, 1)
	assert.Equal(t, "Maize", candidate.MonoCrops[0].CropName)

	require.Len(t, client.requests, 1)
	retry := client.requests[0]
	assert.Equal(t, "system prompt", retry.System)
	require.Len(t, retry.Contents, 2)
	// Original conversation is preserved, correction appended last.
	assert.Equal(t, `{"farm":"f1"}`, retry.Contents[0].Parts[0].Text)
	correction := retry.Contents[1].Parts[0].Text
	assert.Contains(t, correction, "failed deterministic validation")
	assert.Contains(t, correction, issues[0])
	assert.Contains(t, correction, `"Paddy"`)

	// The original request is not mutated by building the retry.
	assert.Len(t, original.Contents, 1)
}

func TestRegenerateOnceProviderFailure(t *testing.T) {
	client := &scriptedClient{err: errors.New("rate limited")}

	_, err := RegenerateOnce(context.Background(), client, llm.Request{}, []string{"bad range"}, &Recommendation{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "regenerate after validation")
	assert.Len(t, client.requests, 1)
}
