// Package http provides the JSON API server and its handlers.
//
// This file implements utilities for parsing and validating HTTP request data:
// JSON bodies, path IDs, pagination and report period query parameters.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"expenses/internal/core"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

var (
	errInvalidBody = errors.New("invalid JSON body")
	errInvalidID   = errors.New("invalid id")
	errInvalidPage = errors.New("invalid pagination parameters")
	errInvalidYear = errors.New("invalid year or month")
)

// decodeJSON reads one JSON document from the request body into dst.
// Amount errors are returned as core.ErrInvalidAmount so they map to the
// same message as the service layer.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, core.ErrInvalidAmount) {
			return core.ErrInvalidAmount
		}
		return errInvalidBody
	}
	if _, err := dec.Token(); err != io.EOF {
		return errInvalidBody
	}
	return nil
}

// amountInput accepts an amount as a JSON number or string, with either a
// dot or comma decimal separator.
type amountInput struct {
	core.Money
	set bool
}

func (a *amountInput) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	m, err := core.ParseAmount(s)
	if err != nil {
		return err
	}
	a.Money = m
	a.set = true
	return nil
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// ParseTransactionFilter reads category, search, month, limit and offset.
// Missing paging values fall back to the defaults in core.
func ParseTransactionFilter(query url.Values) (core.TransactionFilter, error) {
	f := core.TransactionFilter{
		Category: sanitizeInput(query.Get("category")),
		Search:   sanitizeInput(query.Get("search")),
		Month:    strings.TrimSpace(query.Get("month")),
	}

	var err error
	if f.Limit, err = optionalInt(query.Get("limit")); err != nil || f.Limit < 0 {
		return core.TransactionFilter{}, errInvalidPage
	}
	if f.Offset, err = optionalInt(query.Get("offset")); err != nil || f.Offset < 0 {
		return core.TransactionFilter{}, errInvalidPage
	}
	return f.Normalized(), nil
}

// ParsePeriodParams extracts year and month from query parameters. The year
// defaults to the current one and an absent month selects the whole year.
func ParsePeriodParams(query url.Values, now time.Time) (core.ReportPeriod, error) {
	p := core.ReportPeriod{Year: now.Year()}

	var err error
	if v := strings.TrimSpace(query.Get("year")); v != "" {
		if p.Year, err = strconv.Atoi(v); err != nil {
			return core.ReportPeriod{}, errInvalidYear
		}
	}
	if p.Month, err = optionalInt(query.Get("month")); err != nil {
		return core.ReportPeriod{}, errInvalidYear
	}
	if err := p.Validate(); err != nil {
		return core.ReportPeriod{}, errInvalidYear
	}
	return p, nil
}

// ParseTrendParams reads the trend grouping and bucket limit. Unknown
// groupings fall back to months; a missing limit means DefaultTrendLimit.
func ParseTrendParams(query url.Values) (core.TrendGrouping, int, error) {
	g := core.ParseTrendGrouping(query.Get("period"))
	limit, err := optionalInt(query.Get("limit"))
	if err != nil {
		return "", 0, core.ErrInvalidTrendLimit
	}
	if strings.TrimSpace(query.Get("limit")) == "" {
		limit = core.DefaultTrendLimit
	}
	return g, limit, nil
}

func optionalInt(v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", v, err)
	}
	return n, nil
}

// sanitizeInput removes control characters except tab, newline and
// carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
