package samplegame

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// client is a thin JSON client for the server's submit and score routes.
type client struct {
	http    *http.Client
	baseURL string
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

type submitBody struct {
	Team    string  `json:"team"`
	Flag    string  `json:"flag"`
	AuthKey *string `json:"auth_key,omitempty"`
}

type submitReply struct {
	Valid bool `json:"valid"`
}

type scoreReply struct {
	Team    int     `json:"team"`
	Score   float64 `json:"score"`
	Bitmask []struct {
		Hash     string `json:"hash"`
		Claimed  bool   `json:"claimed"`
		Nickname string `json:"nickname"`
	} `json:"bitmask"`
}

// SubmitClaim posts one claim and reports whether the server accepted it
// as valid.
func (c *client) SubmitClaim(ctx context.Context, team int, flag string, authKey *string) (bool, error) {
	payload, err := json.Marshal(submitBody{Team: itoa(team), Flag: flag, AuthKey: authKey})
	if err != nil {
		return false, fmt.Errorf("marshal claim: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/submit", bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("build claim request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("post claim: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("read claim response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("claim rejected with status %d: %s", resp.StatusCode, body)
	}

	var reply submitReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return false, fmt.Errorf("decode claim response: %w", err)
	}
	return reply.Valid, nil
}

// FetchScore reads a team's current tally with caching disabled so the
// verification sees every claim immediately.
func (c *client) FetchScore(ctx context.Context, team int) (scoreReply, error) {
	var reply scoreReply

	url := fmt.Sprintf("%s/score/%d?no_cache=true", c.baseURL, team)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return reply, fmt.Errorf("build score request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return reply, fmt.Errorf("get score: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return reply, fmt.Errorf("read score response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return reply, fmt.Errorf("score request failed with status %d: %s", resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, &reply); err != nil {
		return reply, fmt.Errorf("decode score response: %w", err)
	}
	return reply, nil
}
