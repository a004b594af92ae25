package smartcontract

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// call records a single transport invocation
type call struct {
	method string
	path   string
	params url.Values
	body   any
}

// mockTransport implements Transport for testing
type mockTransport struct {
	mu     sync.Mutex
	calls  []call
	result json.RawMessage
	err    error
}

func (m *mockTransport) Get(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call{method: "GET", path: path, params: params})
	return m.result, m.err
}

func (m *mockTransport) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call{method: "POST", path: path, body: body})
	return m.result, m.err
}

func sampleRequest() VerificationRequest {
	return VerificationRequest{
		SourceCode:      "src",
		ABI:             "[]",
		Version:         "0.8.0",
		VersionFullName: "v0.8.0+commit",
		Optimizer:       true,
		OptimizerRuns:   200,
		IsSingleFile:    true,
		Libs:            map[string]string{},
		EVM:             "london",
		ViaIR:           false,
	}
}

func TestEmptyAddress(t *testing.T) {
	ops := map[string]func(c *Client) error{
		"GetOneByAddress": func(c *Client) error {
			_, err := c.GetOneByAddress(context.Background(), "")
			return err
		},
		"VerifySourceCode": func(c *Client) error {
			_, err := c.VerifySourceCode(context.Background(), "", sampleRequest())
			return err
		},
		"GetAbiByAddress": func(c *Client) error {
			_, err := c.GetAbiByAddress(context.Background(), "")
			return err
		},
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			mt := &mockTransport{}
			err := op(New(mt))

			assert.ErrorIs(t, err, ErrInvalidArgument)
			assert.Empty(t, mt.calls, "no request should be issued")
		})
	}
}

func TestGetOneByAddress(t *testing.T) {
	mt := &mockTransport{result: json.RawMessage(`{"address":"0xabc","name":"Token"}`)}
	c := New(mt)

	res, err := c.GetOneByAddress(context.Background(), "0xabc")
	require.NoError(t, err)

	assert.JSONEq(t, `{"address":"0xabc","name":"Token"}`, string(res))
	assert.Equal(t, mt.result, res)

	require.Len(t, mt.calls, 1)
	assert.Equal(t, "GET", mt.calls[0].method)
	assert.Equal(t, "smartcontract/0xabc", mt.calls[0].path)
	assert.Empty(t, mt.calls[0].params)
}

func TestGetAbiByAddress(t *testing.T) {
	mt := &mockTransport{result: json.RawMessage(`[{"type":"function","name":"totalSupply"}]`)}
	c := New(mt)

	res, err := c.GetAbiByAddress(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, mt.result, res)

	require.Len(t, mt.calls, 1)
	assert.Equal(t, "GET", mt.calls[0].method)
	assert.Equal(t, "smartcontract/abi/0xabc", mt.calls[0].path)
	assert.Empty(t, mt.calls[0].params)
}

func TestVerifySourceCode(t *testing.T) {
	mt := &mockTransport{result: json.RawMessage(`{"verified":true}`)}
	c := New(mt)

	res, err := c.VerifySourceCode(context.Background(), "0xabc", sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, mt.result, res)

	require.Len(t, mt.calls, 1)
	assert.Equal(t, "POST", mt.calls[0].method)
	assert.Equal(t, "smartcontract/verify/0xabc", mt.calls[0].path)

	body, err := json.Marshal(mt.calls[0].body)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"sourceCode": "src",
		"abi": "[]",
		"version": "0.8.0",
		"versionFullName": "v0.8.0+commit",
		"optimizer": true,
		"optimizerRuns": 200,
		"isSingleFile": true,
		"libs": {},
		"evm": "london",
		"viaIR": false
	}`, string(body))
}

func TestVerifySourceCode_ZeroValuesAreSent(t *testing.T) {
	mt := &mockTransport{}
	_, err := New(mt).VerifySourceCode(context.Background(), "0xabc", VerificationRequest{})
	require.NoError(t, err)

	body, err := json.Marshal(mt.calls[0].body)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(body, &fields))
	assert.Len(t, fields, 10)
	for _, name := range []string{"sourceCode", "abi", "version", "versionFullName", "optimizer",
		"optimizerRuns", "isSingleFile", "libs", "evm", "viaIR"} {
		assert.Contains(t, fields, name)
	}
}

func TestTransportErrorIsReturnedUnchanged(t *testing.T) {
	transportErr := errors.New("HTTP 502: bad gateway")

	mt := &mockTransport{err: transportErr}
	c := New(mt)

	_, err := c.GetOneByAddress(context.Background(), "0xabc")
	assert.Same(t, transportErr, err)

	_, err = c.GetAbiByAddress(context.Background(), "0xabc")
	assert.Same(t, transportErr, err)

	_, err = c.VerifySourceCode(context.Background(), "0xabc", sampleRequest())
	assert.Same(t, transportErr, err)

	assert.Len(t, mt.calls, 3)
}

func TestRepeatedCallsAreIndependent(t *testing.T) {
	mt := &mockTransport{result: json.RawMessage(`{}`)}
	c := New(mt)

	for i := 0; i < 2; i++ {
		_, err := c.GetOneByAddress(context.Background(), "0xabc")
		require.NoError(t, err)
		_, err = c.VerifySourceCode(context.Background(), "0xabc", sampleRequest())
		require.NoError(t, err)
	}

	require.Len(t, mt.calls, 4)
	assert.Equal(t, mt.calls[0], mt.calls[2])
	assert.Equal(t, mt.calls[1], mt.calls[3])
}

func TestConcurrentCalls(t *testing.T) {
	mt := &mockTransport{result: json.RawMessage(`{}`)}
	c := New(mt)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.GetAbiByAddress(context.Background(), "0xabc")
		}()
	}
	wg.Wait()

	assert.Len(t, mt.calls, 20)
}

func TestAddressIsSingleSegment(t *testing.T) {
	mt := &mockTransport{}
	_, err := New(mt).GetOneByAddress(context.Background(), "a/b")
	require.NoError(t, err)
	assert.Equal(t, "smartcontract/a%2Fb", mt.calls[0].path)
}
