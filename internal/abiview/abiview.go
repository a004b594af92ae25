// Package abiview extracts and summarizes contract ABIs returned by the explorer.
package abiview

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ErrNoABI is returned when a response carries no ABI.
var ErrNoABI = errors.New("response contains no ABI")

// Extract returns the ABI array held in an explorer response. It accepts
// the bare array, a JSON string holding the array, or an object with an
// "abi" field in either form.
func Extract(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, ErrNoABI
	}

	switch trimmed[0] {
	case '[':
		return trimmed, nil
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, fmt.Errorf("decoding ABI string: %w", err)
		}
		if s == "" {
			return nil, ErrNoABI
		}
		return Extract(json.RawMessage(s))
	case '{':
		var obj struct {
			ABI json.RawMessage `json:"abi"`
		}
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, fmt.Errorf("decoding response: %w", err)
		}
		if len(obj.ABI) == 0 || obj.ABI[0] == '{' {
			return nil, ErrNoABI
		}
		return Extract(obj.ABI)
	default:
		return nil, ErrNoABI
	}
}

// Summary lists the callable surface of a contract.
type Summary struct {
	Constructor string
	Functions   []Entry
	Events      []Entry
	Errors      []Entry
	Fallback    bool
	Receive     bool
}

// Entry is a single ABI member.
type Entry struct {
	Name       string
	Signature  string
	Selector   string
	Mutability string
}

// Summarize parses abiJSON and collects its members sorted by name.
func Summarize(abiJSON []byte) (*Summary, error) {
	parsed, err := abi.JSON(bytes.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("parsing ABI: %w", err)
	}

	s := &Summary{
		Fallback: parsed.HasFallback(),
		Receive:  parsed.HasReceive(),
	}
	if len(parsed.Constructor.Inputs) > 0 {
		s.Constructor = parsed.Constructor.String()
	}

	for _, m := range parsed.Methods {
		s.Functions = append(s.Functions, Entry{
			Name:       m.Name,
			Signature:  m.Sig,
			Selector:   fmt.Sprintf("0x%x", m.ID),
			Mutability: m.StateMutability,
		})
	}
	for _, e := range parsed.Events {
		s.Events = append(s.Events, Entry{
			Name:      e.Name,
			Signature: e.Sig,
			Selector:  e.ID.Hex(),
		})
	}
	for _, e := range parsed.Errors {
		s.Errors = append(s.Errors, Entry{
			Name:      e.Name,
			Signature: e.Sig,
			Selector:  fmt.Sprintf("0x%x", e.ID[:4]),
		})
	}

	for _, entries := range [][]Entry{s.Functions, s.Events, s.Errors} {
		sort.Slice(entries, func(i, j int) bool { return entries[i].Signature < entries[j].Signature })
	}

	return s, nil
}

// Write renders the summary as aligned text.
func (s *Summary) Write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if s.Constructor != "" {
		fmt.Fprintf(tw, "Constructor: %s\n\n", s.Constructor)
	}

	fmt.Fprintf(tw, "Functions (%d):\n", len(s.Functions))
	for _, f := range s.Functions {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", f.Selector, f.Signature, f.Mutability)
	}

	fmt.Fprintf(tw, "\nEvents (%d):\n", len(s.Events))
	for _, e := range s.Events {
		fmt.Fprintf(tw, "  %s\t%s\n", e.Selector, e.Signature)
	}

	if len(s.Errors) > 0 {
		fmt.Fprintf(tw, "\nErrors (%d):\n", len(s.Errors))
		for _, e := range s.Errors {
			fmt.Fprintf(tw, "  %s\t%s\n", e.Selector, e.Signature)
		}
	}

	if s.Fallback || s.Receive {
		fmt.Fprintln(tw)
		if s.Fallback {
			fmt.Fprintln(tw, "Has fallback function")
		}
		if s.Receive {
			fmt.Fprintln(tw, "Has receive function")
		}
	}

	return tw.Flush()
}
