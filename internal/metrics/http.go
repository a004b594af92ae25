package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RoundTripper returns an http.RoundTripper recording request metrics for next.
func RoundTripper(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	if !Enabled() {
		return next
	}

	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		start := time.Now()

		resp, err := next.RoundTrip(req)

		// Normalize path to avoid high cardinality from addresses
		path := normalizePath(req.URL.Path)

		status := "error"
		if err == nil {
			status = strconv.Itoa(resp.StatusCode)
		}

		mu.RLock()
		httpRequestsTotal.WithLabelValues(req.Method, path, status).Inc()
		httpDuration.WithLabelValues(req.Method, path).Observe(time.Since(start).Seconds())
		mu.RUnlock()

		return resp, err
	})
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// normalizePath converts dynamic path segments to placeholders to avoid
// high cardinality metrics. For example:
//
//	/api/smartcontract/0x1234...       -> /api/smartcontract/{address}
//	/api/smartcontract/abi/0x1234...   -> /api/smartcontract/abi/{address}
//	/api/smartcontract/verify/0x12...  -> /api/smartcontract/verify/{address}
func normalizePath(path string) string {
	parts := strings.Split(path, "/")
	normalized := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		if isLikelyAddress(part) {
			normalized = append(normalized, "{address}")
		} else {
			normalized = append(normalized, part)
		}
	}
	return "/" + strings.Join(normalized, "/")
}

// isLikelyAddress returns true if segment looks like a contract address or identifier
func isLikelyAddress(segment string) bool {
	// 0x-prefixed hex (EVM addresses, hashes)
	if len(segment) > 2 && (strings.HasPrefix(segment, "0x") || strings.HasPrefix(segment, "0X")) && isHex(segment[2:]) {
		return true
	}
	// Unprefixed hashes
	if len(segment) >= 40 && isHex(segment) {
		return true
	}
	// UUIDs with dashes
	if strings.Count(segment, "-") >= 4 {
		return true
	}
	// Pure numbers
	if isNumeric(segment) {
		return true
	}
	return false
}

// isHex returns true if string is hexadecimal (supports both upper and lowercase)
func isHex(s string) bool {
	for _, c := range s {
		isDigit := c >= '0' && c <= '9'
		isLowerHex := c >= 'a' && c <= 'f'
		isUpperHex := c >= 'A' && c <= 'F'
		if !isDigit && !isLowerHex && !isUpperHex {
			return false
		}
	}
	return len(s) > 0
}

// isNumeric returns true if string contains only digits
func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}
