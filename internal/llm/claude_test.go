// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withClaudeServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(h)
	old := claudeAPIURL
	claudeAPIURL = ts.URL
	t.Cleanup(func() {
		claudeAPIURL = old
		ts.Close()
	})
	return ts
}

func TestClaudeGenerate(t *testing.T) {
	var got claudeRequest
	var headers http.Header
	ts := withClaudeServer(t, func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"content":[{"type":"text","text":"• Revenue "},{"type":"tool_use"},{"type":"text","text":"[ref](https://a.example)"}]}`)
	})

	c := &ClaudeBackend{APIKey: "ak", Model: "claude-test", MaxTokens: 512, Client: ts.Client()}
	text, err := c.Generate(context.Background(), "system text", "user text")
	require.NoError(t, err)

	assert.Equal(t, "• Revenue [ref](https://a.example)", text)
	assert.Equal(t, "ak", headers.Get("x-api-key"))
	assert.Equal(t, "2023-06-01", headers.Get("anthropic-version"))
	assert.Equal(t, "claude-test", got.Model)
	assert.Equal(t, 512, got.MaxTokens)
	assert.Equal(t, "system text", got.System)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "user text", got.Messages[0].Content)
}

func TestClaudeGenerateDefaultMaxTokens(t *testing.T) {
	var got claudeRequest
	ts := withClaudeServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprint(w, `{"content":[{"type":"text","text":"x"}]}`)
	})
	c := &ClaudeBackend{APIKey: "ak", Model: "m", Client: ts.Client()}
	_, err := c.Generate(context.Background(), "", "u")
	require.NoError(t, err)
	assert.Equal(t, defaultMaxTokens, got.MaxTokens)
	assert.Empty(t, got.System)
}

func TestClaudeGenerateErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		errMsg  string
	}{
		{name: "http error", status: http.StatusBadRequest, body: `{"error":"bad"}`, errMsg: "Claude API returned 400"},
		{name: "bad json", status: http.StatusOK, body: `{`, errMsg: "decoding Claude response"},
		{name: "no content", status: http.StatusOK, body: `{"content":[]}`, wantErr: ErrEmptyResponse},
		{name: "only non-text blocks", status: http.StatusOK, body: `{"content":[{"type":"tool_use"}]}`, wantErr: ErrEmptyResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := withClaudeServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})
			c := &ClaudeBackend{APIKey: "ak", Model: "m", Client: ts.Client()}
			_, err := c.Generate(context.Background(), "s", "u")
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.errMsg != "" {
				assert.Contains(t, err.Error(), tt.errMsg)
			}
		})
	}
}
