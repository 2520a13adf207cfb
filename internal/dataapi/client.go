// Package dataapi is a metric source backed by the hosted RegionIQ Data API.
// It speaks the API's PxWeb-style observation query grammar: a list of
// dimension selections posted to /observations/query, answered with
// observation records plus response metadata and cursor pagination.
package dataapi

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/regioniq/catchment/internal/fetch"
	"github.com/regioniq/catchment/internal/metrics"
	"github.com/regioniq/catchment/internal/model"
)

// RegionLister enumerates the area codes at a level. The boundary store
// satisfies it, so the region selection always matches the drawn map; the
// API rejects unbounded region=all queries.
type RegionLister interface {
	Areas(ctx context.Context, level model.Level) ([]model.AdministrativeArea, error)
}

// Client is a metric source over the Data API.
type Client struct {
	baseURL string
	fetcher *fetch.Client
	regions RegionLister
	limiter *rate.Limiter
}

// NewClient creates a Data API client.
func NewClient(baseURL string, fetcher *fetch.Client, regions RegionLister) *Client {
	if fetcher == nil {
		fetcher = fetch.NewClient(fetch.Options{})
	}
	return &Client{
		baseURL: baseURL,
		fetcher: fetcher,
		regions: regions,
		limiter: rate.NewLimiter(5, 5),
	}
}

// Query grammar types, mirroring the API's request/response models.

type selection struct {
	Filter string   `json:"filter"`
	Values []string `json:"values,omitempty"`
	From   string   `json:"from,omitempty"`
	To     string   `json:"to,omitempty"`
}

type queryDim struct {
	Code      string    `json:"code"`
	Selection selection `json:"selection"`
}

type queryRequest struct {
	Query    []queryDim     `json:"query"`
	Response map[string]any `json:"response"`
	Limit    int            `json:"limit"`
	Cursor   *int           `json:"cursor,omitempty"`
}

type observationRecord struct {
	MetricID   string   `json:"metric_id"`
	RegionCode string   `json:"region_code"`
	Level      string   `json:"level"`
	TimePeriod int      `json:"time_period"`
	Scenario   string   `json:"scenario"`
	Measure    string   `json:"measure"`
	Value      *float64 `json:"value"`
	DataType   string   `json:"data_type"`
}

type responseMeta struct {
	ReturnedRecords int      `json:"returned_records"`
	Truncated       bool     `json:"truncated"`
	NextCursor      *int     `json:"next_cursor"`
	Warnings        []string `json:"warnings"`
}

type queryResponse struct {
	Meta responseMeta        `json:"meta"`
	Data []observationRecord `json:"data"`
}

// regionChunk bounds the region list per request to keep payloads manageable.
const regionChunk = 100

// Snapshot fetches the metric values for every area at the level. The server
// already resolves scenario to measure and picks the value, so records apply
// directly.
func (c *Client) Snapshot(ctx context.Context, level model.Level, year int, scenario model.Scenario) (metrics.Snapshot, error) {
	areas, err := c.regions.Areas(ctx, level)
	if err != nil {
		return nil, &metrics.FetchError{Level: level, Year: year, Scenario: scenario,
			Err: eris.Wrap(err, "dataapi: enumerate regions")}
	}
	codes := make([]string, 0, len(areas))
	for _, a := range areas {
		codes = append(codes, a.Code)
	}

	snap := make(metrics.Snapshot)
	for start := 0; start < len(codes); start += regionChunk {
		end := min(start+regionChunk, len(codes))
		if err := c.queryChunk(ctx, snap, codes[start:end], level, year, scenario); err != nil {
			return nil, &metrics.FetchError{Level: level, Year: year, Scenario: scenario, Err: err}
		}
	}
	return snap, nil
}

func (c *Client) queryChunk(ctx context.Context, snap metrics.Snapshot, codes []string, level model.Level, year int, scenario model.Scenario) error {
	var cursor *int
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "dataapi: rate limiter wait")
		}

		req := queryRequest{
			Query: []queryDim{
				{Code: "metric", Selection: selection{Filter: "item", Values: metrics.CatchmentMetrics}},
				{Code: "region", Selection: selection{Filter: "item", Values: codes}},
				{Code: "time_period", Selection: selection{Filter: "range", From: strconv.Itoa(year), To: strconv.Itoa(year)}},
				{Code: "scenario", Selection: selection{Filter: "item", Values: []string{string(scenario)}}},
			},
			Response: map[string]any{"format": "records"},
			Limit:    50000,
			Cursor:   cursor,
		}
		body, err := json.Marshal(req)
		if err != nil {
			return eris.Wrap(err, "dataapi: marshal query")
		}

		data, err := c.fetcher.Post(ctx, c.baseURL+"/observations/query", bytes.NewReader(body))
		if err != nil {
			return eris.Wrap(err, "dataapi: observations query")
		}

		var resp queryResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return eris.Wrap(err, "dataapi: decode response")
		}

		for _, rec := range resp.Data {
			if rec.Value == nil || rec.TimePeriod != year {
				continue
			}
			snap.Apply(metrics.Observation{
				RegionCode:  rec.RegionCode,
				RegionLevel: level,
				MetricID:    rec.MetricID,
				Period:      rec.TimePeriod,
				Value:       rec.Value,
				DataType:    "historical", // server already picked the measure
			}, scenario)
		}

		if !resp.Meta.Truncated || resp.Meta.NextCursor == nil {
			return nil
		}
		cursor = resp.Meta.NextCursor
	}
}
