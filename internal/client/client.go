package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/TimurManjosov/goroute/internal/rules"
	"github.com/TimurManjosov/goroute/internal/store"
)

// Client is an HTTP client for the goroute admin API
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ClickStats is the click counter response for a ruleset or rule.
type ClickStats struct {
	RuleSetID int64  `json:"ruleset_id"`
	RuleID    int64  `json:"rule_id,omitempty"`
	Day       string `json:"day,omitempty"`
	SegmentID int64  `json:"segment_id,omitempty"`
	Clicks    int64  `json:"clicks"`
}

// CreateRuleSet creates a new ruleset
func (c *Client) CreateRuleSet(ctx context.Context, params store.RuleSetParams) (*rules.RuleSet, error) {
	var rs rules.RuleSet
	if err := c.do(ctx, http.MethodPost, "/v1/rulesets", params, &rs); err != nil {
		return nil, err
	}
	return &rs, nil
}

// GetRuleSet retrieves a single ruleset by stub or numeric id
func (c *Client) GetRuleSet(ctx context.Context, identifier string) (*rules.RuleSet, error) {
	var rs rules.RuleSet
	if err := c.do(ctx, http.MethodGet, "/v1/rulesets/"+url.PathEscape(identifier), nil, &rs); err != nil {
		return nil, err
	}
	return &rs, nil
}

// ListRuleSets retrieves all rulesets
func (c *Client) ListRuleSets(ctx context.Context) ([]rules.RuleSet, error) {
	var result struct {
		RuleSets []rules.RuleSet `json:"rulesets"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/rulesets", nil, &result); err != nil {
		return nil, err
	}
	return result.RuleSets, nil
}

// UpdateRuleSet replaces a ruleset's attributes
func (c *Client) UpdateRuleSet(ctx context.Context, id int64, params store.RuleSetParams) (*rules.RuleSet, error) {
	var rs rules.RuleSet
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/v1/rulesets/%d", id), params, &rs); err != nil {
		return nil, err
	}
	return &rs, nil
}

// DeleteRuleSet deletes a ruleset and its rules
func (c *Client) DeleteRuleSet(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/v1/rulesets/%d", id), nil, nil)
}

// AddRule appends a rule at the end of a ruleset's order
func (c *Client) AddRule(ctx context.Context, rulesetID int64, params store.RuleParams) (*rules.Rule, error) {
	var rule rules.Rule
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/v1/rulesets/%d/rules", rulesetID), params, &rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

// DeleteRule removes a rule from a ruleset
func (c *Client) DeleteRule(ctx context.Context, rulesetID, ruleID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/v1/rulesets/%d/rules/%d", rulesetID, ruleID), nil, nil)
}

// ReorderRules reassigns rule positions to match the given id order
func (c *Client) ReorderRules(ctx context.Context, rulesetID int64, ruleIDs []int64) error {
	body := struct {
		RuleIDs []int64 `json:"rule_ids"`
	}{RuleIDs: ruleIDs}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/v1/rulesets/%d/rules/order", rulesetID), body, nil)
}

// Clicks reads a day's click counter. An empty day means today; ruleID 0
// reads the ruleset-level counter.
func (c *Client) Clicks(ctx context.Context, rulesetID int64, day string, segmentID, ruleID int64) (*ClickStats, error) {
	u, err := url.Parse(fmt.Sprintf("%s/v1/rulesets/%d/clicks", c.BaseURL, rulesetID))
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	q := u.Query()
	if day != "" {
		q.Set("day", day)
	}
	if segmentID > 0 {
		q.Set("segment", fmt.Sprint(segmentID))
	}
	if ruleID > 0 {
		q.Set("rule", fmt.Sprint(ruleID))
	}
	u.RawQuery = q.Encode()

	var stats ClickStats
	if err := c.doURL(ctx, http.MethodGet, u.String(), nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// do issues an authenticated JSON request against a path under BaseURL.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	return c.doURL(ctx, method, c.BaseURL+path, body, out)
}

func (c *Client) doURL(ctx context.Context, method, fullURL string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
