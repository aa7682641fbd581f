// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-json-experiment/json"

	"github.com/agentwire/agentwire"
)

// Well-known agent card paths, tried in order.
var cardPaths = []string{
	"/.well-known/agent-card.json",
	"/.well-known/agent.json",
}

// CardResolver discovers an agent's card from its base URL.
type CardResolver struct {
	baseURL    string
	httpClient *http.Client
}

// NewCardResolver returns a resolver for the agent at baseURL.
func NewCardResolver(baseURL string, opts ...Option) *CardResolver {
	c := NewClient(baseURL, opts...)
	return &CardResolver{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: c.httpClient,
	}
}

// Resolve fetches the agent card, preferring the agent-card.json path and
// falling back to the legacy agent.json.
func (r *CardResolver) Resolve(ctx context.Context) (*agentwire.AgentCard, error) {
	var errs []error
	for _, path := range cardPaths {
		card, err := r.fetch(ctx, r.baseURL+path)
		if err == nil {
			return card, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", path, err))
	}
	return nil, fmt.Errorf("resolve agent card: %w", errors.Join(errs...))
}

func (r *CardResolver) fetch(ctx context.Context, url string) (*agentwire.AgentCard, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	card := new(agentwire.AgentCard)
	if err := json.UnmarshalRead(resp.Body, card); err != nil {
		return nil, fmt.Errorf("decode card: %w", err)
	}
	if card.Name == "" {
		return nil, fmt.Errorf("card has no name")
	}
	return card, nil
}
