package appsheet

import (
	"context"
	"encoding/json"
	"fmt"
)

type Action string

const ActionAdd Action = "Add"

type Properties struct {
	Locale   string `json:"Locale"`
	Location string `json:"Location,omitempty"`
	Timezone string `json:"Timezone,omitempty"`
}

type ActionRequest struct {
	Action     Action       `json:"Action"`
	Properties Properties   `json:"Properties"`
	Rows       []ClockInRow `json:"Rows"`
}

// ClockInRow mirrors the ClockIn table columns.
type ClockInRow struct {
	ClockInID   string `json:"ClockInID"`
	WorkerID    string `json:"WorkerID,omitempty"`
	Date        string `json:"Date,omitempty"`
	Time        string `json:"Time,omitempty"`
	Notes       string `json:"Notes,omitempty"`
	TaskID      string `json:"TaskID,omitempty"`
	Approved    *bool  `json:"Approved,omitempty"`
	DeviceID    string `json:"Device,omitempty"`
	LastUpdated string `json:"LastUpdated,omitempty"`
}

type ActionResponse struct {
	Rows []map[string]any `json:"Rows"`
}

type TableEndpoint struct {
	transport *Transport
	appID     string
	table     string
	timezone  string
}

func (e *TableEndpoint) WithTimezone(tz string) *TableEndpoint {
	clone := *e
	clone.timezone = tz
	return &clone
}

func (e *TableEndpoint) Do(ctx context.Context, action Action, rows []ClockInRow) (*ActionResponse, error) {
	if len(rows) == 0 {
		return &ActionResponse{}, nil
	}
	payload := ActionRequest{
		Action:     action,
		Properties: Properties{Locale: "en-US", Location: "US", Timezone: e.timezone},
		Rows:       rows,
	}

	resp, err := e.transport.Post(ctx, payload, "api", "v2", "apps", e.appID, "tables", e.table, "Action")
	if err != nil {
		return nil, fmt.Errorf("appsheet %s %s: %w", action, e.table, err)
	}

	var result ActionResponse
	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &result); err != nil {
			return nil, fmt.Errorf("appsheet %s %s: decode response: %w", action, e.table, err)
		}
	}
	return &result, nil
}

func (e *TableEndpoint) Add(ctx context.Context, rows ...ClockInRow) (*ActionResponse, error) {
	return e.Do(ctx, ActionAdd, rows)
}
