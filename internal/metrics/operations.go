package metrics

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"
)

// Transport is the request surface of the explorer API client.
type Transport interface {
	Get(ctx context.Context, path string, params url.Values) (json.RawMessage, error)
	Post(ctx context.Context, path string, body any) (json.RawMessage, error)
}

// InstrumentTransport wraps t so that each call is recorded as a smart
// contract operation. Results and errors pass through untouched.
func InstrumentTransport(t Transport) Transport {
	if !Enabled() {
		return t
	}
	return &instrumentedTransport{next: t}
}

type instrumentedTransport struct {
	next Transport
}

func (t *instrumentedTransport) Get(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	start := time.Now()
	res, err := t.next.Get(ctx, path, params)
	Operation(operationName("GET", path), statusOf(err), time.Since(start))
	return res, err
}

func (t *instrumentedTransport) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	start := time.Now()
	res, err := t.next.Post(ctx, path, body)
	Operation(operationName("POST", path), statusOf(err), time.Since(start))
	return res, err
}

// Operation records a smart contract operation.
func Operation(operation, status string, d time.Duration) {
	mu.RLock()
	defer mu.RUnlock()
	if !enabled {
		return
	}
	operationTotal.WithLabelValues(operation, status).Inc()
	operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// operationName maps a request path onto the smart contract operation it serves.
func operationName(method, path string) string {
	p := strings.TrimLeft(path, "/")
	switch {
	case method == "POST" && strings.HasPrefix(p, "smartcontract/verify/"):
		return "verify_source_code"
	case method == "GET" && strings.HasPrefix(p, "smartcontract/abi/"):
		return "get_abi"
	case method == "GET" && strings.HasPrefix(p, "smartcontract/"):
		return "get_contract"
	default:
		return "other"
	}
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
