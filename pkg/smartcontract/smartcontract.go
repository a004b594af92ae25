// Package smartcontract exposes the explorer's smart contract endpoints:
// contract lookup, source verification and ABI retrieval.
package smartcontract

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
)

// ErrInvalidArgument is returned, before any request is made, when an
// operation is called without a contract address.
var ErrInvalidArgument = errors.New("missing argument")

// Transport is the API transport the client issues requests through.
// *client.Client satisfies it.
type Transport interface {
	Get(ctx context.Context, path string, params url.Values) (json.RawMessage, error)
	Post(ctx context.Context, path string, body any) (json.RawMessage, error)
}

// VerificationRequest is the body submitted for source verification.
// Every field is sent as-is; the server owns compilation and matching.
type VerificationRequest struct {
	SourceCode      string            `json:"sourceCode"`
	ABI             string            `json:"abi"`
	Version         string            `json:"version"`
	VersionFullName string            `json:"versionFullName"`
	Optimizer       bool              `json:"optimizer"`
	OptimizerRuns   int               `json:"optimizerRuns"`
	IsSingleFile    bool              `json:"isSingleFile"`
	Libs            map[string]string `json:"libs"`
	EVM             string            `json:"evm"`
	ViaIR           bool              `json:"viaIR"`
}

// Client issues smart contract requests. It holds no state besides its
// transport and is safe for concurrent use.
type Client struct {
	transport Transport
}

// New creates a smart contract client on top of t.
func New(t Transport) *Client {
	return &Client{transport: t}
}

// GetOneByAddress fetches the contract registered at address.
func (c *Client) GetOneByAddress(ctx context.Context, address string) (json.RawMessage, error) {
	if address == "" {
		return nil, ErrInvalidArgument
	}
	return c.transport.Get(ctx, "smartcontract/"+url.PathEscape(address), url.Values{})
}

// VerifySourceCode submits req for verification against the contract at address.
func (c *Client) VerifySourceCode(ctx context.Context, address string, req VerificationRequest) (json.RawMessage, error) {
	if address == "" {
		return nil, ErrInvalidArgument
	}
	return c.transport.Post(ctx, "smartcontract/verify/"+url.PathEscape(address), req)
}

// GetAbiByAddress fetches the ABI of the contract at address.
func (c *Client) GetAbiByAddress(ctx context.Context, address string) (json.RawMessage, error) {
	if address == "" {
		return nil, ErrInvalidArgument
	}
	return c.transport.Get(ctx, "smartcontract/abi/"+url.PathEscape(address), url.Values{})
}
