// Package catalog is the HTTP client for the Pen Market backend, the
// collaborator that owns the item catalog, seller accounts, and purchase
// records. The purchase flow itself never mutates the catalog.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	penmarket "github.com/penmarket/penmarket-go"
)

// DefaultBaseURL is the backend the reference frontend talks to.
const DefaultBaseURL = "http://localhost:8000"

// Error is a non-success response from the catalog backend. It is surfaced
// through a blocking acknowledgment in the UI, never through the ephemeral
// notification channel.
type Error struct {
	StatusCode int
	Detail     string
}

func (e *Error) Error() string {
	return fmt.Sprintf("catalog: %s (status %d)", e.Detail, e.StatusCode)
}

// NotFound reports whether the backend answered 404 (e.g. an empty search).
func (e *Error) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Config configures the catalog client
type Config struct {
	// BaseURL is the backend's base URL (optional, defaults to DefaultBaseURL)
	BaseURL string

	// HTTPClient is the HTTP client to use (optional)
	HTTPClient *http.Client

	// Timeout for requests (optional, defaults to 30s)
	Timeout time.Duration
}

// Client talks to the catalog backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a catalog client.
func NewClient(config *Config) *Client {
	if config == nil {
		config = &Config{}
	}

	baseURL := strings.TrimSuffix(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     slog.Default().With("component", "catalog_client"),
	}
}

// ImageURL resolves an item's image reference to its server-relative static
// path.
func (c *Client) ImageURL(name string) string {
	return c.baseURL + "/static/" + name
}

// AllPens lists every pen in the catalog.
func (c *Client) AllPens(ctx context.Context) ([]penmarket.Item, error) {
	body, err := c.do(ctx, http.MethodGet, "/all_pens/", "", nil)
	if err != nil {
		return nil, err
	}
	var pens []penmarket.Item
	if err := json.Unmarshal(body, &pens); err != nil {
		return nil, fmt.Errorf("failed to decode pens response: %w", err)
	}
	return pens, nil
}

// SearchPenByName lists pens whose name contains the given fragment. The
// backend answers 404 when nothing matches; callers may treat that as an
// empty result via Error.NotFound.
func (c *Client) SearchPenByName(ctx context.Context, name string) ([]penmarket.Item, error) {
	path := "/search_pen_by_name?name=" + url.QueryEscape(name)
	body, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, err
	}
	var pens []penmarket.Item
	if err := json.Unmarshal(body, &pens); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return pens, nil
}

// PenUpload is the multipart payload for creating or editing a pen.
// Image is optional; when nil no image field is sent.
type PenUpload struct {
	Name        string
	Description string
	Price       decimal.Decimal
	ImageName   string
	Image       io.Reader
}

// AddPen creates a pen listing owned by the given seller.
func (c *Client) AddPen(ctx context.Context, sellerID int64, upload PenUpload) (penmarket.Item, error) {
	form, contentType, err := encodePenForm(upload, &sellerID)
	if err != nil {
		return penmarket.Item{}, err
	}
	body, err := c.do(ctx, http.MethodPost, "/add_pen", contentType, form)
	if err != nil {
		return penmarket.Item{}, err
	}
	var pen penmarket.Item
	if err := json.Unmarshal(body, &pen); err != nil {
		return penmarket.Item{}, fmt.Errorf("failed to decode pen response: %w", err)
	}
	return pen, nil
}

// EditPen updates an existing pen listing.
func (c *Client) EditPen(ctx context.Context, penID int64, upload PenUpload) (penmarket.Item, error) {
	form, contentType, err := encodePenForm(upload, nil)
	if err != nil {
		return penmarket.Item{}, err
	}
	body, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/edit_pen/%d", penID), contentType, form)
	if err != nil {
		return penmarket.Item{}, err
	}
	var pen penmarket.Item
	if err := json.Unmarshal(body, &pen); err != nil {
		return penmarket.Item{}, fmt.Errorf("failed to decode pen response: %w", err)
	}
	return pen, nil
}

// DeletePen removes a pen listing.
func (c *Client) DeletePen(ctx context.Context, penID int64) error {
	_, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/delete_pen/%d", penID), "", nil)
	return err
}

// LoginSeller authenticates a seller and returns their identifier.
func (c *Client) LoginSeller(ctx context.Context, walletAddress, password string) (int64, error) {
	return c.sellerForm(ctx, "/login_seller", walletAddress, password)
}

// RegisterSeller creates a seller account and returns its identifier.
func (c *Client) RegisterSeller(ctx context.Context, walletAddress, password string) (int64, error) {
	return c.sellerForm(ctx, "/register_seller", walletAddress, password)
}

// BuyPen records a completed purchase with its transaction hash and returns
// the purchase record's identifier.
func (c *Client) BuyPen(ctx context.Context, penID, buyerID int64, transactionHash string) (int64, error) {
	form := url.Values{}
	form.Set("buyer_id", strconv.FormatInt(buyerID, 10))
	form.Set("transaction_hash", transactionHash)

	body, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/buy_pen/%d", penID),
		"application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return 0, err
	}

	var response struct {
		PurchaseID int64 `json:"purchase_id"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return 0, fmt.Errorf("failed to decode purchase response: %w", err)
	}
	return response.PurchaseID, nil
}

func (c *Client) sellerForm(ctx context.Context, path, walletAddress, password string) (int64, error) {
	form := url.Values{}
	form.Set("wallet_address", walletAddress)
	form.Set("password", password)

	body, err := c.do(ctx, http.MethodPost, path,
		"application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return 0, err
	}

	var response struct {
		SellerID int64 `json:"seller_id"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return 0, fmt.Errorf("failed to decode seller response: %w", err)
	}
	return response.SellerID, nil
}

// encodePenForm builds the multipart body shared by AddPen and EditPen.
func encodePenForm(upload PenUpload, sellerID *int64) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	writer.WriteField("name", upload.Name)
	writer.WriteField("description", upload.Description)
	writer.WriteField("price", upload.Price.String())
	if sellerID != nil {
		writer.WriteField("seller_id", strconv.FormatInt(*sellerID, 10))
	}
	if upload.Image != nil {
		part, err := writer.CreateFormFile("image", upload.ImageName)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create image part: %w", err)
		}
		if _, err := io.Copy(part, upload.Image); err != nil {
			return nil, "", fmt.Errorf("failed to encode image: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize form: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

// do performs a request and returns the response body, converting non-2xx
// responses into *Error with the backend's detail message.
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", path, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := decodeDetail(responseBody)
		c.logger.Warn("catalog request rejected",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"detail", detail,
		)
		return nil, &Error{StatusCode: resp.StatusCode, Detail: detail}
	}
	return responseBody, nil
}

// decodeDetail extracts the backend's {"detail": ...} error message.
func decodeDetail(body []byte) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != "" {
		return payload.Detail
	}
	return strings.TrimSpace(string(body))
}
