package payout

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the external payout gateway that moves funds to a
// freelancer once a client releases payment. Requests carry an
// HMAC-SHA256 signature over merchant_ref + amount.
type Client struct {
	HTTP       *http.Client
	APIKey     string
	PrivateKey string
	BaseURL    string
}

func NewClient(apiKey, privateKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://sandbox.payouts.freelancehub.dev/api"
	}
	return &Client{
		HTTP:       &http.Client{Timeout: 15 * time.Second},
		APIKey:     apiKey,
		PrivateKey: privateKey,
		BaseURL:    baseURL,
	}
}

type disburseRequest struct {
	MerchantRef    string `json:"merchant_ref"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	RecipientEmail string `json:"recipient_email"`
	Note           string `json:"note"`
	Signature      string `json:"signature"`
}

type disburseResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		Reference   string `json:"reference"`
		MerchantRef string `json:"merchant_ref"`
		Amount      int64  `json:"amount"`
	} `json:"data"`
}

// Disburse requests a payout and returns the gateway reference. The
// gateway treats merchant_ref as an idempotency key, so a redelivered
// request for the same ref cannot double-pay.
func (c *Client) Disburse(ctx context.Context, merchantRef string, amount int64, currency, recipientEmail, note string) (string, error) {
	sigData := fmt.Sprintf("%s%d", merchantRef, amount)
	reqBody := disburseRequest{
		MerchantRef:    merchantRef,
		Amount:         amount,
		Currency:       currency,
		RecipientEmail: recipientEmail,
		Note:           note,
		Signature:      c.sign(sigData),
	}

	jsonBody, _ := json.Marshal(reqBody)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/disbursements", bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)

	var apiResp disburseResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return "", fmt.Errorf("failed to parse payout response: %v", err)
	}
	if !apiResp.Success {
		return "", fmt.Errorf("payout gateway error: %s", apiResp.Message)
	}

	return apiResp.Data.Reference, nil
}

func (c *Client) sign(data string) string {
	h := hmac.New(sha256.New, []byte(c.PrivateKey))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}
