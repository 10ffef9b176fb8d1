// Package meetings remembers which task the user booked a recurring meeting
// against, keyed by the normalized meeting note.
package meetings

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// StorageKey is the key the note-to-task map is stored under.
const StorageKey = "tickspot.meeting-task-map.v1"

// NotePrefix is the normalized prefix of notes derived from calendar events.
const NotePrefix = "meeting:"

// KV is the subset of the key-value store used here.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Memory is the note -> task id mapping.
type Memory struct {
	kv KV
}

// New returns a Memory backed by kv.
func New(kv KV) *Memory {
	return &Memory{kv: kv}
}

// NormalizeNote trims and lowercases a note.
func NormalizeNote(note string) string {
	return strings.ToLower(strings.TrimSpace(note))
}

// IsMeetingNote reports whether note was derived from a calendar event.
func IsMeetingNote(note string) bool {
	return strings.HasPrefix(NormalizeNote(note), NotePrefix)
}

// Load returns the whole mapping. A missing or unreadable record reads as
// empty; only store failures are returned.
func (m *Memory) Load(ctx context.Context) (map[string]int64, error) {
	raw, ok, err := m.kv.Get(ctx, StorageKey)
	if err != nil {
		return map[string]int64{}, err
	}
	if !ok || raw == "" {
		return map[string]int64{}, nil
	}
	var mapping map[string]int64
	if err := json.Unmarshal([]byte(raw), &mapping); err != nil || mapping == nil {
		return map[string]int64{}, nil
	}
	return mapping, nil
}

// TaskFor returns the remembered task for note.
func (m *Memory) TaskFor(ctx context.Context, note string) (int64, bool, error) {
	mapping, err := m.Load(ctx)
	if err != nil {
		return 0, false, err
	}
	id, ok := mapping[NormalizeNote(note)]
	return id, ok, nil
}

// Remember stores taskID for note. Notes that are not meeting notes are
// ignored.
func (m *Memory) Remember(ctx context.Context, note string, taskID int64) error {
	normalized := NormalizeNote(note)
	if !strings.HasPrefix(normalized, NotePrefix) {
		return nil
	}
	mapping, err := m.Load(ctx)
	if err != nil {
		return err
	}
	mapping[normalized] = taskID
	data, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("encoding meeting task map: %w", err)
	}
	return m.kv.Set(ctx, StorageKey, string(data))
}
