package types

import (
	"fmt"
	"time"
)

// TimeRange is one of the dashboard windows
type TimeRange string

const (
	Range24h TimeRange = "24h"
	Range7d  TimeRange = "7d"
	Range30d TimeRange = "30d"
	Range90d TimeRange = "90d"
)

// ParseTimeRange accepts 24h/7d/30d/90d; empty input defaults to 7d
func ParseTimeRange(s string) (TimeRange, error) {
	switch TimeRange(s) {
	case "":
		return Range7d, nil
	case Range24h, Range7d, Range30d, Range90d:
		return TimeRange(s), nil
	}
	return "", fmt.Errorf("invalid time range %q (supported: 24h, 7d, 30d, 90d)", s)
}

// Duration returns the window length
func (r TimeRange) Duration() time.Duration {
	switch r {
	case Range24h:
		return 24 * time.Hour
	case Range30d:
		return 30 * 24 * time.Hour
	case Range90d:
		return 90 * 24 * time.Hour
	default:
		return 7 * 24 * time.Hour
	}
}

// Window is a half-open time interval [Since, Until)
type Window struct {
	Since time.Time
	Until time.Time
}

// WindowEndingAt returns the window of length r ending at now
func (r TimeRange) WindowEndingAt(now time.Time) Window {
	return Window{Since: now.Add(-r.Duration()), Until: now}
}

// Previous returns the equally long window immediately before w
func (w Window) Previous() Window {
	return Window{Since: w.Since.Add(-w.Until.Sub(w.Since)), Until: w.Since}
}

// Contains reports whether t falls inside the window; zero bounds are open
func (w Window) Contains(t time.Time) bool {
	if !w.Since.IsZero() && t.Before(w.Since) {
		return false
	}
	if !w.Until.IsZero() && !t.Before(w.Until) {
		return false
	}
	return true
}

// FeedbackFilter narrows feedback listings and aggregation windows
type FeedbackFilter struct {
	Sources    []Source
	Products   []string
	Statuses   []Status
	Tiers      []Tier
	UrgencyMin int
	UrgencyMax int
	Search     string
	Theme      string
	Window     Window
}

// Page is a 1-based page request
type Page struct {
	Number int
	Size   int
}

// Normalize applies defaults (page 1, size 20) and caps size at 100
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = 20
	}
	if p.Size > 100 {
		p.Size = 100
	}
	return p
}

// Offset is the number of rows to skip
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// PageResult wraps a page of results
type PageResult[T any] struct {
	Data     []T   `json:"data"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	HasMore  bool  `json:"has_more"`
}

// AlertFilter narrows alert listings
type AlertFilter struct {
	Type         AlertType
	Acknowledged *bool
	Product      string
	Limit        int
}
