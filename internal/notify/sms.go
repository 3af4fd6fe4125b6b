package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/kolna/keysync/internal/config"
)

// SMSFactorClient sends through the SMSFactor gateway. The API is a GET with
// query parameters; success is HTTP 200 with a status of 1 in the body.
type SMSFactorClient struct {
	baseURL    string
	token      string
	sender     string
	httpClient *http.Client
}

func NewSMSFactorClient(baseURL, token, sender string) *SMSFactorClient {
	return &SMSFactorClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		sender:     sender,
		httpClient: &http.Client{Timeout: config.ExternalRequestTimeout},
	}
}

func (c *SMSFactorClient) Enabled() bool {
	return c.token != ""
}

func (c *SMSFactorClient) Send(ctx context.Context, to, text string) error {
	params := url.Values{
		"to":     {to},
		"text":   {text},
		"sender": {c.sender},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/send?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var body struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
		Ticket  string `json:"ticket"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || body.Status != 1 {
		return fmt.Errorf("HTTP %d - %s", resp.StatusCode, body.Message)
	}
	return nil
}
