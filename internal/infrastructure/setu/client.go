package setu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultBaseURL    = "https://fiu-sandbox.setu.co"
	defaultTimeout    = 60 * time.Second
	consentPath       = "/consents"
	sessionPath       = "/sessions"
	consentPurpose    = "Wealth management and financial planning"
	consentPurposeRef = "https://api.rebit.org.in/aa/purpose/101.xml"
)

// Client handles communication with the Setu Account Aggregator API.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	clientID     string
	clientSecret string
	redirectURL  string
}

// Ensure Client implements ClientInterface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a new Setu AA client.
func NewClient(baseURL, clientID, clientSecret, redirectURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient:   &http.Client{Timeout: defaultTimeout},
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURL:  redirectURL,
	}
}

// ConsentResponse is the API response for a consent request.
type ConsentResponse struct {
	ConsentID  string `json:"id"`
	Status     string `json:"status"`
	ConsentURL string `json:"url"`
}

// ConsentDetail is the expanded consent status response.
type ConsentDetail struct {
	ConsentID string          `json:"id"`
	Status    string          `json:"status"`
	Detail    json.RawMessage `json:"detail,omitempty"`
}

// FIDataResponse is the decrypted FI data payload from a data session.
type FIDataResponse struct {
	Fips []FIP `json:"fips"`
}

// FIP is one financial information provider block.
type FIP struct {
	FipID    string      `json:"fipID"`
	Accounts []FIAccount `json:"accounts"`
}

// FIAccount is one linked account's data block.
type FIAccount struct {
	LinkRefNumber string        `json:"linkRefNumber"`
	Data          FIAccountData `json:"data"`
}

type FIAccountData struct {
	Account FIAccountDetail `json:"account"`
}

type FIAccountDetail struct {
	MaskedAccNumber string         `json:"maskedAccNumber"`
	Transactions    FITransactions `json:"transactions"`
}

type FITransactions struct {
	Transaction []FITransaction `json:"transaction"`
}

// FITransaction is a raw ledger line as Setu reports it. Amounts and dates
// arrive as strings; the ledger normalizer owns parsing them.
type FITransaction struct {
	TxnID     string `json:"txnId"`
	Amount    string `json:"amount"`
	Type      string `json:"type"`
	ValueDate string `json:"valueDate"`
	Narration string `json:"narration"`
	Reference string `json:"reference"`
}

type initiateConsentRequest struct {
	Mobile       string    `json:"mobileNumber"`
	Purpose      purpose   `json:"purpose"`
	ConsentTypes []string  `json:"consentTypes"`
	FITypes      []string  `json:"fiTypes"`
	RedirectURL  string    `json:"redirectUrl"`
	DataRange    dataRange `json:"dataRange"`
}

type purpose struct {
	Code   string `json:"code"`
	Text   string `json:"text"`
	RefURI string `json:"refUri"`
}

type dataRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// InitiateConsent creates a consent request for bank account linking and
// returns the consent ID plus the approval URL the user must visit. The
// approval flow itself is between the user and the aggregator.
func (c *Client) InitiateConsent(ctx context.Context, mobile string) (*ConsentResponse, error) {
	now := time.Now().UTC()
	reqBody := initiateConsentRequest{
		Mobile: mobile,
		Purpose: purpose{
			Code:   "101",
			Text:   consentPurpose,
			RefURI: consentPurposeRef,
		},
		ConsentTypes: []string{"TRANSACTIONS", "PROFILE", "SUMMARY"},
		FITypes:      []string{"DEPOSIT"},
		RedirectURL:  c.redirectURL,
		DataRange: dataRange{
			From: now.AddDate(-1, 0, 0).Format("2006-01-02T00:00:00Z"),
			To:   now.Format("2006-01-02T00:00:00Z"),
		},
	}

	var resp ConsentResponse
	if err := c.do(ctx, http.MethodPost, consentPath, reqBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to initiate consent: %w", err)
	}
	return &resp, nil
}

// GetConsentStatus fetches the current status of a consent request.
func (c *Client) GetConsentStatus(ctx context.Context, consentID string) (*ConsentDetail, error) {
	var resp ConsentDetail
	path := consentPath + "/" + url.PathEscape(consentID) + "?expanded=true"
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get consent status: %w", err)
	}
	return &resp, nil
}

type createSessionRequest struct {
	ConsentID string    `json:"consentId"`
	DataRange dataRange `json:"dataRange"`
	Format    string    `json:"format"`
}

type sessionResponse struct {
	SessionID string `json:"id"`
	Status    string `json:"status"`
}

// FetchTransactions creates a data session for an approved consent and
// retrieves the FI data. from/to default to the trailing year when empty.
func (c *Client) FetchTransactions(ctx context.Context, consentID, from, to string) (*FIDataResponse, error) {
	now := time.Now().UTC()
	if from == "" {
		from = now.AddDate(-1, 0, 0).Format("2006-01-02T00:00:00Z")
	}
	if to == "" {
		to = now.Format("2006-01-02T00:00:00Z")
	}

	var session sessionResponse
	reqBody := createSessionRequest{
		ConsentID: consentID,
		DataRange: dataRange{From: from, To: to},
		Format:    "json",
	}
	if err := c.do(ctx, http.MethodPost, sessionPath, reqBody, &session); err != nil {
		return nil, fmt.Errorf("failed to create data session: %w", err)
	}

	var fiData FIDataResponse
	path := sessionPath + "/" + url.PathEscape(session.SessionID)
	if err := c.do(ctx, http.MethodGet, path, nil, &fiData); err != nil {
		return nil, fmt.Errorf("failed to fetch session data: %w", err)
	}
	return &fiData, nil
}

// do performs an authenticated request against the Setu API and decodes the
// JSON response into out. Non-2xx responses surface as errors with the body
// included; callers must not retry here (retry policy belongs to callers).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-client-id", c.clientID)
	req.Header.Set("x-client-secret", c.clientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
