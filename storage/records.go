package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// SchemaVersion is the version written into every saved document.
// Version 0 is the bare JSON array written by the browser build.
const SchemaVersion = 1

type envelope struct {
	SchemaVersion int               `json:"schemaVersion"`
	Records       []json.RawMessage `json:"records"`
}

// RecordIssue describes a record that was dropped or altered while loading.
type RecordIssue struct {
	Key     string
	Index   int
	Dropped bool
	Err     error
}

func (i RecordIssue) Error() string {
	action := "migrated"
	if i.Dropped {
		action = "dropped"
	}
	return fmt.Sprintf("%s[%d] %s: %v", i.Key, i.Index, action, i.Err)
}

// LoadRecords decodes the list saved under key. A missing key yields an empty list.
// Records that cannot be decoded are dropped; unknown fields are dropped from otherwise
// valid records. Both cases are reported in issues and never fail the load.
func LoadRecords[T any](ctx context.Context, s Store, key string) (records []T, issues []RecordIssue, err error) {
	data, err := s.Load(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return []T{}, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	raws, err := splitDocument(data)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode %s: %w", key, err)
	}

	records = make([]T, 0, len(raws))
	for i, raw := range raws {
		var rec T
		strict := json.NewDecoder(bytes.NewReader(raw))
		strict.DisallowUnknownFields()
		decodeErr := strict.Decode(&rec)
		switch {
		case decodeErr == nil:
			records = append(records, rec)
			continue
		case !isUnknownField(decodeErr):
			issues = append(issues, RecordIssue{Key: key, Index: i, Dropped: true, Err: decodeErr})
			continue
		}
		issues = append(issues, RecordIssue{Key: key, Index: i, Err: decodeErr})
		rec = *new(T)
		if err := json.Unmarshal(raw, &rec); err != nil {
			issues = append(issues, RecordIssue{Key: key, Index: i, Dropped: true, Err: err})
			continue
		}
		records = append(records, rec)
	}
	return records, issues, nil
}

// SaveRecords writes records under key in the current schema.
func SaveRecords[T any](ctx context.Context, s Store, key string, records []T) error {
	raws := make([]json.RawMessage, 0, len(records))
	for _, r := range records {
		b, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to encode %s record: %w", key, err)
		}
		raws = append(raws, b)
	}
	data, err := json.Marshal(envelope{SchemaVersion: SchemaVersion, Records: raws})
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.Save(ctx, key, data)
}

// LoadDocument decodes a single JSON value saved under key into v. found is false when the
// key does not exist.
func LoadDocument(ctx context.Context, s Store, key string, v interface{}) (found bool, err error) {
	data, err := s.Load(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// SaveDocument encodes v as JSON under key.
func SaveDocument(ctx context.Context, s Store, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.Save(ctx, key, data)
}

func splitDocument(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var raws []json.RawMessage
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			return nil, err
		}
		return raws, nil
	}
	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, err
	}
	if env.SchemaVersion > SchemaVersion {
		return nil, fmt.Errorf("unsupported schema version %d", env.SchemaVersion)
	}
	return env.Records, nil
}

func isUnknownField(err error) bool {
	return strings.HasPrefix(err.Error(), "json: unknown field")
}
