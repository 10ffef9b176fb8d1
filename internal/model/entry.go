package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Hours is a fractional hour count. The remote API sends it either as a JSON
// number or as a numeric string ("2.5"), so both forms are accepted.
type Hours float64

// UnmarshalJSON accepts numbers, numeric strings, empty strings and null.
func (h *Hours) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*h = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*h = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid hours %q: %w", s, err)
		}
		*h = Hours(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid hours %s: %w", string(data), err)
	}
	*h = Hours(v)
	return nil
}

// Entry is a single time entry as returned by the remote service.
type Entry struct {
	ID        int64  `json:"id"`
	Date      string `json:"date"`
	Hours     Hours  `json:"hours"`
	Notes     string `json:"notes,omitempty"`
	TaskID    *int64 `json:"task_id,omitempty"`
	ProjectID *int64 `json:"project_id,omitempty"`
}

// EntryPayload is the request body for creating or updating an entry.
type EntryPayload struct {
	Date      string  `json:"date"`
	Hours     float64 `json:"hours"`
	Notes     string  `json:"notes,omitempty"`
	TaskID    *int64  `json:"task_id,omitempty"`
	ProjectID *int64  `json:"project_id,omitempty"`
}

// Payload returns the editable fields of e.
func (e Entry) Payload() EntryPayload {
	return EntryPayload{
		Date:      e.Date,
		Hours:     float64(e.Hours),
		Notes:     e.Notes,
		TaskID:    e.TaskID,
		ProjectID: e.ProjectID,
	}
}

// Suggestion is a calendar-derived candidate entry. It is never persisted.
type Suggestion struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Subtitle string  `json:"subtitle"`
	Note     string  `json:"note"`
	Hours    float64 `json:"hours"`
	Date     string  `json:"date"`
}

// ID returns a pointer to v, for optional id fields.
func ID(v int64) *int64 {
	return &v
}
