package lockapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/kolna/keysync/internal/config"
	apperrors "github.com/kolna/keysync/internal/errors"
	"github.com/kolna/keysync/internal/model"
)

// FormClient drives the vendor's web UI the way a browser would: cookie
// session, CSRF token from the create form, code rows scraped from the
// share table. It exists as a fallback for accounts without API access and
// deliberately does the minimum HTML extraction needed for the contract.
type FormClient struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client

	mu       sync.Mutex
	loggedIn bool
}

var (
	rowRe       = regexp.MustCompile(`(?is)<tr[^>]*>(.*?)</tr>`)
	codeLinkRe  = regexp.MustCompile(`/partage/accessoire/(\d+)/(delete|edit|get)`)
	nameLinkRe  = regexp.MustCompile(`(?i)<a[^>]*href=["'][^"']*/partage/accessoire/\d+/[^"']*["'][^>]*>([^<]+)</a>`)
	firstCellRe = regexp.MustCompile(`(?i)<td[^>]*>([^<]+)</td>`)
	dateRe      = regexp.MustCompile(`\d{4}-\d{2}-\d{2}|\d{2}/\d{2}/\d{4}`)
	tokenRe     = regexp.MustCompile(`partage_accessoire\[_token\]["'][^>]*value=["']([^"']+)["']`)
	actionRe    = regexp.MustCompile(`action=["']([^"']+)["']`)
	tagRe       = regexp.MustCompile(`(?i)<[^>]+>`)
)

func NewFormClient(baseURL, username, password string) *FormClient {
	jar, _ := cookiejar.New(nil)
	return &FormClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		httpClient: &http.Client{
			Timeout: config.ExternalRequestTimeout,
			Jar:     jar,
		},
	}
}

func (c *FormClient) get(ctx context.Context, path string) (finalURL, html string, status int, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return "", "", 0, err
	}
	return c.send(req)
}

func (c *FormClient) postForm(ctx context.Context, path string, form url.Values) (finalURL, html string, status int, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return "", "", 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.send(req)
}

func (c *FormClient) send(req *http.Request) (string, string, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", 0, err
	}
	return resp.Request.URL.String(), string(body), resp.StatusCode, nil
}

// checkAuth probes a protected page; a redirect to /login means the session
// is gone.
func (c *FormClient) checkAuth(ctx context.Context) bool {
	finalURL, _, status, err := c.get(ctx, "/en/compte/serrure")
	return err == nil && status == http.StatusOK && !strings.Contains(finalURL, "/login")
}

func (c *FormClient) Login(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loggedIn && c.checkAuth(ctx) {
		return nil
	}

	if _, _, status, err := c.get(ctx, "/auth/en/login"); err != nil {
		return apperrors.LockAuth(err)
	} else if status != http.StatusOK {
		return apperrors.LockAuth(fmt.Errorf("cannot access login page: HTTP %d", status))
	}

	form := url.Values{
		"_username": {c.username},
		"_password": {c.password},
	}
	if _, _, _, err := c.postForm(ctx, "/auth/en/login_check", form); err != nil {
		return apperrors.LockAuth(err)
	}

	if !c.checkAuth(ctx) {
		return apperrors.LockAuth(fmt.Errorf("authentication verification failed"))
	}

	c.loggedIn = true
	return nil
}

func (c *FormClient) ensureLoggedIn(ctx context.Context) error {
	c.mu.Lock()
	ok := c.loggedIn
	c.mu.Unlock()
	if ok {
		return nil
	}
	return c.Login(ctx)
}

func (c *FormClient) ListCodes(ctx context.Context, lockID int64) ([]model.AccessCode, error) {
	if err := c.ensureLoggedIn(ctx); err != nil {
		return nil, err
	}

	finalURL, html, status, err := c.get(ctx, fmt.Sprintf("/en/compte/serrure/%d/view_partage", lockID))
	if err != nil {
		return nil, apperrors.External("thekeys", err)
	}
	if strings.Contains(finalURL, "/login") {
		return nil, apperrors.LockAuth(fmt.Errorf("session expired"))
	}
	if status != http.StatusOK {
		return nil, apperrors.External("thekeys", fmt.Errorf("codes page returned HTTP %d", status))
	}

	var codes []model.AccessCode
	for _, row := range rowRe.FindAllStringSubmatch(html, -1) {
		rowHTML := row[1]
		if strings.Contains(strings.ToLower(rowHTML), "<th") {
			continue
		}
		idMatch := codeLinkRe.FindStringSubmatch(rowHTML)
		if idMatch == nil {
			continue
		}
		codeID, _ := strconv.ParseInt(idMatch[1], 10, 64)

		name := "Unknown"
		if m := nameLinkRe.FindStringSubmatch(rowHTML); m != nil {
			name = strings.TrimSpace(m[1])
		} else if m := firstCellRe.FindStringSubmatch(rowHTML); m != nil {
			name = strings.TrimSpace(m[1])
		}

		var startDate, endDate string
		if dates := dateRe.FindAllString(rowHTML, 2); len(dates) > 0 {
			startDate = dates[0]
			if len(dates) > 1 {
				endDate = dates[1]
			}
		}

		codes = append(codes, model.AccessCode{
			ID:        codeID,
			LockID:    lockID,
			Name:      name,
			StartDate: startDate,
			EndDate:   endDate,
			// The share table has no separate description column; the row
			// text carries it, which is all the substring correlation needs.
			Description: strings.TrimSpace(tagRe.ReplaceAllString(rowHTML, " ")),
		})
	}
	return codes, nil
}

// fetchForm loads a form page and extracts the CSRF token plus the action
// URL to post back to.
func (c *FormClient) fetchForm(ctx context.Context, path string) (action, token string, err error) {
	finalURL, html, status, err := c.get(ctx, path)
	if err != nil {
		return "", "", apperrors.External("thekeys", err)
	}
	if strings.Contains(finalURL, "/login") {
		return "", "", apperrors.LockAuth(fmt.Errorf("session expired"))
	}
	if status != http.StatusOK {
		return "", "", apperrors.External("thekeys", fmt.Errorf("form page returned HTTP %d", status))
	}

	m := tokenRe.FindStringSubmatch(html)
	if m == nil {
		return "", "", apperrors.External("thekeys", fmt.Errorf("cannot find form token"))
	}
	token = m[1]

	action = path
	if am := actionRe.FindStringSubmatch(html); am != nil {
		action = am[1]
	}
	return action, token, nil
}

func formValues(accessoireID, token string, params CodeParams) url.Values {
	return url.Values{
		"partage_accessoire[actif]":                {"1"},
		"partage_accessoire[notification_enabled]": {"1"},
		"partage_accessoire[nom]":                  {params.GuestName},
		"partage_accessoire[accessoire]":           {accessoireID},
		"partage_accessoire[code]":                 {params.PIN},
		"partage_accessoire[date_debut]":           {params.StartDate},
		"partage_accessoire[date_fin]":             {params.EndDate},
		"partage_accessoire[description]":          {params.Description},
		"partage_accessoire[_token]":               {token},
		"partage_accessoire[heure_debut][hour]":    {strconv.Itoa(params.CheckInHour)},
		"partage_accessoire[heure_debut][minute]":  {strconv.Itoa(params.CheckInMinute)},
		"partage_accessoire[heure_fin][hour]":      {strconv.Itoa(params.CheckOutHour)},
		"partage_accessoire[heure_fin][minute]":    {strconv.Itoa(params.CheckOutMinute)},
	}
}

func (c *FormClient) CreateCode(ctx context.Context, lockID int64, accessoireID string, params CodeParams) (*model.AccessCode, error) {
	if err := c.ensureLoggedIn(ctx); err != nil {
		return nil, err
	}

	createPath := fmt.Sprintf("/en/compte/partage/accessoire/create/%d?type=digicode", lockID)
	action, token, err := c.fetchForm(ctx, createPath)
	if err != nil {
		return nil, err
	}

	finalURL, _, _, err := c.postForm(ctx, action, formValues(accessoireID, token, params))
	if err != nil {
		return nil, apperrors.External("thekeys", err)
	}
	// A successful submit redirects away from the create page.
	if strings.Contains(finalURL, "/create") {
		return nil, apperrors.External("thekeys", fmt.Errorf("create form was not accepted"))
	}

	// The web UI does not reveal the new code id; the next ListCodes scan
	// picks it up via the correlation tag.
	return &model.AccessCode{
		LockID:      lockID,
		Name:        params.GuestName,
		PIN:         params.PIN,
		Description: params.Description,
		StartDate:   params.StartDate,
		EndDate:     params.EndDate,
	}, nil
}

func (c *FormClient) UpdateCode(ctx context.Context, codeID int64, params CodeParams) error {
	if err := c.ensureLoggedIn(ctx); err != nil {
		return err
	}

	editPath := fmt.Sprintf("/en/compte/partage/accessoire/%d/get", codeID)
	action, token, err := c.fetchForm(ctx, editPath)
	if err != nil {
		return err
	}

	finalURL, _, _, err := c.postForm(ctx, action, formValues("", token, params))
	if err != nil {
		return apperrors.External("thekeys", err)
	}
	if strings.Contains(finalURL, "/login") {
		return apperrors.LockAuth(fmt.Errorf("session expired"))
	}
	return nil
}

func (c *FormClient) DeleteCode(ctx context.Context, codeID int64) error {
	if err := c.ensureLoggedIn(ctx); err != nil {
		return err
	}

	finalURL, _, _, err := c.get(ctx, fmt.Sprintf("/en/compte/partage/accessoire/%d/delete", codeID))
	if err != nil {
		return apperrors.External("thekeys", err)
	}
	if strings.Contains(finalURL, "/delete") {
		return apperrors.External("thekeys", fmt.Errorf("delete was not accepted"))
	}
	return nil
}

var _ Client = (*FormClient)(nil)
