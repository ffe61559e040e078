package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"referral-rewards-backend/config"
	"referral-rewards-backend/internal/core/ports"
	"referral-rewards-backend/pkg/apperror"

	"github.com/rs/zerolog"
)

const (
	createBillPath       = "/index.php/api/createBill"
	billTransactionsPath = "/index.php/api/getBillTransactions"

	// billpaymentStatus values defined by the provider. Anything else is
	// treated as pending. This mapping must not be extended.
	statusPaid   = "1"
	statusFailed = "3"
)

// Client talks to the external bill-payment provider. Both endpoints are
// form-encoded POSTs returning JSON arrays.
type Client struct {
	baseURL      string
	secretKey    string
	categoryCode string
	httpClient   *http.Client
	log          zerolog.Logger
}

// NewClient creates a gateway client from configuration.
func NewClient(cfg config.GatewayConfig, log zerolog.Logger) *Client {
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:    cfg.SecretKey,
		categoryCode: cfg.CategoryCode,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		log:          log,
	}
}

type createBillResponse struct {
	BillCode string `json:"BillCode"`
}

type billTransaction struct {
	BillPaymentStatus string `json:"billpaymentStatus"`
}

// CreateBill opens a bill with the provider and returns its code.
func (c *Client) CreateBill(ctx context.Context, req ports.BillRequest) (string, error) {
	form := url.Values{}
	form.Set("userSecretKey", c.secretKey)
	form.Set("categoryCode", c.categoryCode)
	form.Set("billName", req.Name)
	form.Set("billDescription", req.Description)
	form.Set("billAmount", strconv.FormatInt(req.Amount, 10))
	form.Set("billExternalReferenceNo", req.ExternalRef)
	form.Set("billPriceSetting", "1")
	form.Set("billPayorInfo", "0")

	body, err := c.postForm(ctx, createBillPath, form)
	if err != nil {
		return "", err
	}

	var bills []createBillResponse
	if err := json.Unmarshal(body, &bills); err != nil {
		return "", apperror.ErrUpstreamUnavailable(fmt.Errorf("decode create bill response: %w", err))
	}
	if len(bills) == 0 || bills[0].BillCode == "" {
		return "", apperror.ErrBillRejected()
	}

	c.log.Debug().Str("bill_code", bills[0].BillCode).Msg("gateway bill created")
	return bills[0].BillCode, nil
}

// BillStatus polls the provider for a bill's payment outcome.
// "1" is paid, "3" is failed, anything else (including no transactions yet)
// is pending.
func (c *Client) BillStatus(ctx context.Context, billCode string) (ports.BillState, error) {
	form := url.Values{}
	form.Set("userSecretKey", c.secretKey)
	form.Set("billCode", billCode)

	body, err := c.postForm(ctx, billTransactionsPath, form)
	if err != nil {
		return ports.BillPending, err
	}

	var txns []billTransaction
	if err := json.Unmarshal(body, &txns); err != nil {
		return ports.BillPending, apperror.ErrUpstreamUnavailable(fmt.Errorf("decode bill transactions: %w", err))
	}
	if len(txns) == 0 {
		return ports.BillPending, nil
	}

	switch txns[0].BillPaymentStatus {
	case statusPaid:
		return ports.BillPaid, nil
	case statusFailed:
		return ports.BillFailed, nil
	default:
		return ports.BillPending, nil
	}
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, apperror.ErrUpstreamUnavailable(fmt.Errorf("build gateway request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperror.ErrUpstreamUnavailable(fmt.Errorf("gateway request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperror.ErrUpstreamUnavailable(fmt.Errorf("gateway returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperror.ErrUpstreamUnavailable(fmt.Errorf("read gateway response: %w", err))
	}
	return body, nil
}
