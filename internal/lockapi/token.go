package lockapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/kolna/keysync/internal/config"
	apperrors "github.com/kolna/keysync/internal/errors"
	"github.com/kolna/keysync/internal/model"
)

// TokenClient is the JSON API backend. Authentication is a JWT obtained from
// /api/login_check and sent as a bearer token; on a 401 the client
// re-authenticates once and retries before giving up.
type TokenClient struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	cache      TokenCache
}

func NewTokenClient(baseURL, username, password string, cache TokenCache) *TokenClient {
	return &TokenClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: config.ExternalRequestTimeout},
		cache:      cache,
	}
}

func (c *TokenClient) Login(ctx context.Context) error {
	token, err := c.cache.Get(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("lock token cache read failed, logging in fresh")
	}
	if token != "" {
		return nil
	}
	return c.authenticate(ctx)
}

func (c *TokenClient) authenticate(ctx context.Context) error {
	form := url.Values{
		"_username": {c.username},
		"_password": {c.password},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/login_check", strings.NewReader(form.Encode()))
	if err != nil {
		return apperrors.LockAuth(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.LockAuth(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperrors.LockAuth(fmt.Errorf("login_check returned HTTP %d", resp.StatusCode))
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return apperrors.LockAuth(err)
	}
	if body.Token == "" {
		return apperrors.LockAuth(fmt.Errorf("login_check returned no token"))
	}

	if err := c.cache.Set(ctx, body.Token, config.LockTokenTTL); err != nil {
		log.Warn().Err(err).Msg("failed to cache lock token")
	}
	return nil
}

// do performs an authenticated request. On 401 it drops the cached token,
// re-authenticates once and retries.
func (c *TokenClient) do(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	for attempt := 0; attempt < 2; attempt++ {
		token, err := c.cache.Get(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("lock token cache read failed")
		}
		if token == "" {
			if err := c.authenticate(ctx); err != nil {
				return nil, err
			}
			if token, err = c.cache.Get(ctx); err != nil || token == "" {
				// Cache write did not stick (redis flake); fall back to one
				// more direct authentication on the next loop.
				continue
			}
		}

		var body io.Reader
		if payload != nil {
			data, err := json.Marshal(payload)
			if err != nil {
				return nil, apperrors.External("thekeys", err)
			}
			body = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return nil, apperrors.External("thekeys", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, apperrors.External("thekeys", err)
		}

		if resp.StatusCode == http.StatusUnauthorized {
			resp.Body.Close()
			if clearErr := c.cache.Clear(ctx); clearErr != nil {
				log.Warn().Err(clearErr).Msg("failed to clear stale lock token")
			}
			if attempt == 0 {
				continue
			}
			return nil, apperrors.LockAuth(fmt.Errorf("still unauthorized after re-login"))
		}

		return resp, nil
	}

	return nil, apperrors.LockAuth(fmt.Errorf("could not establish session"))
}

func (c *TokenClient) ListCodes(ctx context.Context, lockID int64) ([]model.AccessCode, error) {
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v2/serrure/%d/partages", lockID), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.External("thekeys", fmt.Errorf("list codes returned HTTP %d", resp.StatusCode))
	}

	var codes []model.AccessCode
	if err := json.NewDecoder(resp.Body).Decode(&codes); err != nil {
		return nil, apperrors.External("thekeys", err)
	}
	for i := range codes {
		codes[i].LockID = lockID
	}
	return codes, nil
}

// codePayload is the vendor's create/update body.
type codePayload struct {
	Nom                 string    `json:"nom"`
	Accessoire          string    `json:"accessoire"`
	Code                string    `json:"code"`
	DateDebut           string    `json:"date_debut"`
	DateFin             string    `json:"date_fin"`
	HeureDebut          clockTime `json:"heure_debut"`
	HeureFin            clockTime `json:"heure_fin"`
	Actif               bool      `json:"actif"`
	NotificationEnabled bool      `json:"notification_enabled"`
	Description         string    `json:"description"`
}

type clockTime struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

func buildPayload(accessoireID string, params CodeParams) codePayload {
	return codePayload{
		Nom:                 params.GuestName,
		Accessoire:          accessoireID,
		Code:                params.PIN,
		DateDebut:           params.StartDate,
		DateFin:             params.EndDate,
		HeureDebut:          clockTime{Hour: params.CheckInHour, Minute: params.CheckInMinute},
		HeureFin:            clockTime{Hour: params.CheckOutHour, Minute: params.CheckOutMinute},
		Actif:               true,
		NotificationEnabled: true,
		Description:         params.Description,
	}
}

func (c *TokenClient) CreateCode(ctx context.Context, lockID int64, accessoireID string, params CodeParams) (*model.AccessCode, error) {
	resp, err := c.do(ctx, http.MethodPost,
		fmt.Sprintf("/api/v2/partage/accessoire/create/%d", lockID),
		buildPayload(accessoireID, params))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, apperrors.External("thekeys", fmt.Errorf("create code returned HTTP %d", resp.StatusCode))
	}

	var created model.AccessCode
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, apperrors.External("thekeys", err)
	}
	created.LockID = lockID
	if created.PIN == "" {
		created.PIN = params.PIN
	}
	if created.Description == "" {
		created.Description = params.Description
	}
	return &created, nil
}

func (c *TokenClient) UpdateCode(ctx context.Context, codeID int64, params CodeParams) error {
	resp, err := c.do(ctx, http.MethodPost,
		fmt.Sprintf("/api/v2/partage/accessoire/%d/update", codeID),
		buildPayload("", params))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperrors.External("thekeys", fmt.Errorf("update code returned HTTP %d", resp.StatusCode))
	}
	return nil
}

func (c *TokenClient) DeleteCode(ctx context.Context, codeID int64) error {
	resp, err := c.do(ctx, http.MethodDelete,
		fmt.Sprintf("/api/v2/partage/accessoire/%d/delete", codeID), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return apperrors.External("thekeys", fmt.Errorf("delete code returned HTTP %d", resp.StatusCode))
	}
	return nil
}

var _ Client = (*TokenClient)(nil)
