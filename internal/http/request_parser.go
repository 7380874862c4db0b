// Package http serves the JSON API and the dashboard shell.
//
// This file implements decoding and validation of request bodies and query
// strings. Every failure comes back as a core.ValidationError so handlers
// can pass it straight to writeError.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"dompet/internal/core"
	"dompet/internal/ledger"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

const dateLayout = "2006-01-02"

// decodeJSON reads exactly one JSON object from the body into dst. Unknown
// fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if core.IsValidation(err) {
			return err
		}
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return core.Invalid(fmt.Errorf("request body larger than %d bytes", maxErr.Limit))
		case errors.Is(err, io.EOF):
			return core.Invalid(errors.New("request body is empty"))
		default:
			return core.Invalid(fmt.Errorf("malformed request body: %w", err))
		}
	}
	if dec.More() {
		return core.Invalid(errors.New("request body must hold a single JSON object"))
	}
	return nil
}

// Amount accepts a JSON integer or a string in the amount field format
// ("50.000"), so the dashboard form can post what the user typed.
type Amount int64

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return core.Invalid(core.ErrInvalidAmount)
		}
		v, err := core.ParseAmount(s)
		if err != nil {
			return err
		}
		*a = Amount(v)
		return nil
	}
	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return core.Invalid(core.ErrInvalidAmount)
	}
	*a = Amount(v)
	return nil
}

// parseDate reads a YYYY-MM-DD date. An empty string yields the zero time.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, core.Invalid(core.ErrInvalidDate)
	}
	return t, nil
}

// parseSelector reads the month query parameter. Missing means the current
// month; "all" selects everything.
func parseSelector(query url.Values, now time.Time) (core.Selector, error) {
	return core.ParseSelector(query.Get("month"), now)
}

// parseListOptions reads month, category and sort from the query string.
func parseListOptions(query url.Values, now time.Time) (ledger.ListOptions, error) {
	sel, err := parseSelector(query, now)
	if err != nil {
		return ledger.ListOptions{}, err
	}
	sort, err := ledger.ParseSortOrder(query.Get("sort"))
	if err != nil {
		return ledger.ListOptions{}, err
	}
	opts := ledger.ListOptions{Selector: sel, Sort: sort}

	if c := strings.TrimSpace(query.Get("category")); c != "" && !strings.EqualFold(c, "all") {
		cat, err := core.ParseCategory(c)
		if err != nil {
			return ledger.ListOptions{}, err
		}
		opts.Category = cat
	}
	return opts, nil
}

// sanitizeInput normalizes line endings to \n, removes the remaining control
// characters except tab and newline, and trims surrounding whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' {
			return -1
		}
		return r
	}, s)
}
