// Package explorer submits deployed contracts to an Etherscan-compatible
// block explorer for source verification.
package explorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrAlreadyVerified is returned when the explorer already holds verified
// source for the address.
var ErrAlreadyVerified = errors.New("contract source code already verified")

// Client is an Etherscan v2 API client
type Client struct {
	baseURL    string
	apiKey     string
	chainID    int64
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithChainID sets the chainid query parameter of the v2 API
func WithChainID(id int64) Option {
	return func(client *Client) {
		client.chainID = id
	}
}

// WithRateLimit caps requests per second. Free explorer keys allow about five.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(client *Client) {
		client.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// New creates a new explorer client
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(4), 1),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SubmitRequest is a verifysourcecode submission
type SubmitRequest struct {
	Address         string
	StandardJSON    []byte
	ContractName    string // "<sourcePath>:<Name>"
	CompilerVersion string // "v0.8.19+commit.7dd6d404"
	ConstructorArgs string // hex, no 0x
}

// Response is the envelope every Etherscan endpoint returns
type Response struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// ResultString returns Result when it is a JSON string.
func (r *Response) ResultString() string {
	var s string
	if err := json.Unmarshal(r.Result, &s); err != nil {
		return string(r.Result)
	}
	return s
}

// APIError is an explorer-level rejection (status "0")
type APIError struct {
	Message string
	Result  string
}

func (e *APIError) Error() string {
	if e.Result == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Result)
}

// VerifySourceCode submits source for verification and returns the GUID to poll.
func (c *Client) VerifySourceCode(ctx context.Context, req SubmitRequest) (string, error) {
	form := url.Values{}
	form.Set("module", "contract")
	form.Set("action", "verifysourcecode")
	form.Set("contractaddress", req.Address)
	form.Set("sourceCode", string(req.StandardJSON))
	form.Set("codeformat", "solidity-standard-json-input")
	form.Set("contractname", req.ContractName)
	form.Set("compilerversion", req.CompilerVersion)
	// misspelling is part of the Etherscan API
	form.Set("constructorArguements", strings.TrimPrefix(req.ConstructorArgs, "0x"))
	form.Set("apikey", c.apiKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(nil), strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.do(httpReq)
	if err != nil {
		return "", err
	}

	result := resp.ResultString()
	if resp.Status != "1" {
		if isAlreadyVerified(result) || isAlreadyVerified(resp.Message) {
			return "", ErrAlreadyVerified
		}
		return "", &APIError{Message: resp.Message, Result: result}
	}
	if result == "" {
		return "", &APIError{Message: "explorer returned no GUID"}
	}
	return result, nil
}

// CheckVerifyStatus returns the explorer's status text for a submission,
// e.g. "Pending in queue", "Pass - Verified" or "Fail - Unable to verify".
func (c *Client) CheckVerifyStatus(ctx context.Context, guid string) (string, error) {
	q := url.Values{}
	q.Set("module", "contract")
	q.Set("action", "checkverifystatus")
	q.Set("guid", guid)
	q.Set("apikey", c.apiKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(q), nil)
	if err != nil {
		return "", err
	}

	resp, err := c.do(httpReq)
	if err != nil {
		return "", err
	}
	// status is "0" for pending and failed alike; the text carries the state
	return resp.ResultString(), nil
}

func (c *Client) endpoint(q url.Values) string {
	if q == nil {
		q = url.Values{}
	}
	if c.chainID > 0 {
		q.Set("chainid", strconv.FormatInt(c.chainID, 10))
	}
	if len(q) == 0 {
		return c.baseURL
	}
	return c.baseURL + "?" + q.Encode()
}

func (c *Client) do(req *http.Request) (*Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding explorer response: %w", err)
	}
	return &out, nil
}

func isAlreadyVerified(s string) bool {
	return strings.Contains(strings.ToLower(s), "already verified")
}
