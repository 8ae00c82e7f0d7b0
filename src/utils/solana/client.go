package solana

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/solignition/ignitor/src/utils/build_info"
	"github.com/solignition/ignitor/src/utils/config"
	"github.com/solignition/ignitor/src/utils/logger"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
	"golang.org/x/time/rate"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrTransactionFailed   = errors.New("transaction failed on chain")
	ErrConfirmationTimeout = errors.New("transaction confirmation timed out")
)

// JSON-RPC client for a Solana node
type Client struct {
	client    *resty.Client
	config    *config.Config
	log       *logrus.Entry
	limiter   *rate.Limiter
	requestID *atomic.Int64
}

func NewClient(config *config.Config) (self *Client) {
	self = new(Client)
	self.config = config
	self.log = logger.NewSublogger("solana-client")
	self.requestID = atomic.NewInt64(0)
	self.limiter = rate.NewLimiter(rate.Limit(config.Solana.LimiterRequestsLimit), config.Solana.LimiterBurstSize)

	self.client =
		resty.New().
			SetBaseURL(config.Solana.NodeUrl).
			SetTimeout(config.Solana.RequestTimeout).
			SetHeader("User-Agent", "solignition.io/ignitor/"+build_info.Version).
			SetHeader("Content-Type", "application/json").
			SetRetryCount(1).
			SetTransport(self.createTransport()).
			AddRetryCondition(self.onRetryCondition).
			AddRetryAfterErrorCondition().
			OnBeforeRequest(self.onRateLimit).
			OnAfterResponse(self.onStatusToError)

	return
}

func (self *Client) createTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   self.config.Solana.DialerTimeout,
		KeepAlive: self.config.Solana.DialerKeepAlive,
	}

	return &http.Transport{
		ForceAttemptHTTP2:     true,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   self.config.Solana.TLSHandshakeTimeout,
		ExpectContinueTimeout: 1 * time.Second,

		// RPC providers may silently drop idle connections,
		// resulting in timeouts while awaiting headers
		IdleConnTimeout:     self.config.Solana.IdleConnTimeout,
		MaxIdleConns:        1,
		MaxIdleConnsPerHost: 1,
	}
}

func (self *Client) onRateLimit(c *resty.Client, req *resty.Request) (err error) {
	return self.limiter.Wait(req.Context())
}

// Returns true if request should be retried
func (self *Client) onRetryCondition(resp *resty.Response, err error) bool {
	if err != nil {
		return false
	}
	if resp.IsSuccess() || !resp.IsError() {
		return false
	}
	// Server side errors may be retried
	return resp.StatusCode() >= 500
}

func (self *Client) onStatusToError(c *resty.Client, resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	if resp.StatusCode() > 399 && resp.StatusCode() < 500 {
		self.log.WithField("status", resp.StatusCode()).
			WithField("resp", string(resp.Body())).
			WithField("url", resp.Request.URL).
			Debug("Bad request")
	}
	return fmt.Errorf("unexpected status: %s", resp.Status())
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (self *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", self.Code, self.Message)
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (self *Client) call(ctx context.Context, method string, params []interface{}, out interface{}) (err error) {
	body := rpcRequest{
		JSONRPC: "2.0",
		ID:      self.requestID.Inc(),
		Method:  method,
		Params:  params,
	}

	resp, err := self.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(rpcResponse{}).
		ForceContentType("application/json").
		Post("/")
	if err != nil {
		return
	}

	rpcResp, ok := resp.Result().(*rpcResponse)
	if !ok {
		return errors.New("failed to parse rpc response")
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if out == nil {
		return
	}
	return json.Unmarshal(rpcResp.Result, out)
}

type rpcContext struct {
	Slot uint64 `json:"slot"`
}

type AccountInfo struct {
	Lamports   uint64
	Owner      string
	Data       []byte
	Executable bool
}

func (self *Client) commitment() map[string]interface{} {
	return map[string]interface{}{"commitment": self.config.Solana.Commitment}
}

func (self *Client) GetAccountInfo(ctx context.Context, address PublicKey) (out *AccountInfo, err error) {
	var result struct {
		Context rpcContext `json:"context"`
		Value   *struct {
			Lamports   uint64   `json:"lamports"`
			Owner      string   `json:"owner"`
			Data       []string `json:"data"`
			Executable bool     `json:"executable"`
		} `json:"value"`
	}

	params := []interface{}{
		address.String(),
		map[string]interface{}{"encoding": "base64", "commitment": self.config.Solana.Commitment},
	}
	err = self.call(ctx, "getAccountInfo", params, &result)
	if err != nil {
		return
	}
	if result.Value == nil {
		err = fmt.Errorf("%w: %s", ErrAccountNotFound, address)
		return
	}

	out = &AccountInfo{
		Lamports:   result.Value.Lamports,
		Owner:      result.Value.Owner,
		Executable: result.Value.Executable,
	}
	if len(result.Value.Data) > 0 {
		out.Data, err = base64.StdEncoding.DecodeString(result.Value.Data[0])
		if err != nil {
			return
		}
	}
	return
}

func (self *Client) GetBalance(ctx context.Context, address PublicKey) (out uint64, err error) {
	var result struct {
		Context rpcContext `json:"context"`
		Value   uint64     `json:"value"`
	}
	err = self.call(ctx, "getBalance", []interface{}{address.String(), self.commitment()}, &result)
	out = result.Value
	return
}

func (self *Client) GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (out uint64, err error) {
	err = self.call(ctx, "getMinimumBalanceForRentExemption", []interface{}{size, self.commitment()}, &out)
	return
}

func (self *Client) GetLatestBlockhash(ctx context.Context) (blockhash string, lastValidBlockHeight uint64, err error) {
	var result struct {
		Context rpcContext `json:"context"`
		Value   struct {
			Blockhash            string `json:"blockhash"`
			LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
		} `json:"value"`
	}
	err = self.call(ctx, "getLatestBlockhash", []interface{}{self.commitment()}, &result)
	blockhash = result.Value.Blockhash
	lastValidBlockHeight = result.Value.LastValidBlockHeight
	return
}

func (self *Client) GetSlot(ctx context.Context) (out uint64, err error) {
	err = self.call(ctx, "getSlot", []interface{}{self.commitment()}, &out)
	return
}

func (self *Client) SendTransaction(ctx context.Context, signedTransaction []byte) (signature string, err error) {
	params := []interface{}{
		base64.StdEncoding.EncodeToString(signedTransaction),
		map[string]interface{}{"encoding": "base64", "preflightCommitment": self.config.Solana.Commitment},
	}
	err = self.call(ctx, "sendTransaction", params, &signature)
	return
}

type signatureStatus struct {
	Slot               uint64          `json:"slot"`
	Err                json.RawMessage `json:"err"`
	ConfirmationStatus string          `json:"confirmationStatus"`
}

// Polls getSignatureStatuses until the transaction reaches the
// configured commitment or the confirmation timeout passes
func (self *Client) ConfirmTransaction(ctx context.Context, signature string) (err error) {
	ctx, cancel := context.WithTimeout(ctx, self.config.Solana.ConfirmationTimeout)
	defer cancel()

	ticker := time.NewTicker(self.config.Solana.ConfirmationPollInterval)
	defer ticker.Stop()

	for {
		var result struct {
			Context rpcContext         `json:"context"`
			Value   []*signatureStatus `json:"value"`
		}
		err = self.call(ctx, "getSignatureStatuses", []interface{}{[]string{signature}}, &result)
		if err == nil && len(result.Value) > 0 && result.Value[0] != nil {
			status := result.Value[0]
			if len(status.Err) > 0 && string(status.Err) != "null" {
				return fmt.Errorf("%w: %s", ErrTransactionFailed, string(status.Err))
			}
			if status.ConfirmationStatus == "confirmed" || status.ConfirmationStatus == "finalized" {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s", ErrConfirmationTimeout, signature)
		case <-ticker.C:
			// poll again
		}
	}
}

// Sends the signed transaction and waits for the confirmation
func (self *Client) SubmitTransaction(ctx context.Context, signedTransaction []byte) (signature string, err error) {
	signature, err = self.SendTransaction(ctx, signedTransaction)
	if err != nil {
		return
	}

	err = self.ConfirmTransaction(ctx, signature)
	return
}

// Fetches the log messages of a confirmed transaction
func (self *Client) GetTransactionLogs(ctx context.Context, signature string) (logs []string, err error) {
	var result *struct {
		Slot uint64 `json:"slot"`
		Meta *struct {
			Err         json.RawMessage `json:"err"`
			LogMessages []string        `json:"logMessages"`
		} `json:"meta"`
	}

	params := []interface{}{
		signature,
		map[string]interface{}{
			"encoding":                       "json",
			"commitment":                     self.config.Solana.Commitment,
			"maxSupportedTransactionVersion": 0,
		},
	}
	err = self.call(ctx, "getTransaction", params, &result)
	if err != nil {
		return
	}
	if result == nil || result.Meta == nil {
		err = fmt.Errorf("%w: %s", ErrTransactionNotFound, signature)
		return
	}

	logs = result.Meta.LogMessages
	return
}
