// Package usagelog persists per-response token usage reported by the
// realtime endpoint. Records are msgpack-encoded and keyed by time so they
// list in chronological order.
package usagelog

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	openairealtime "github.com/haivivi/parley/pkg/openai-realtime"
)

// Record is the usage of one model response.
type Record struct {
	SessionID  string    `msgpack:"session_id" json:"session_id"`
	ResponseID string    `msgpack:"response_id" json:"response_id"`
	Time       time.Time `msgpack:"time" json:"time"`
	Model      string    `msgpack:"model,omitempty" json:"model,omitzero"`

	InputTokens       int `msgpack:"input_tokens" json:"input_tokens"`
	OutputTokens      int `msgpack:"output_tokens" json:"output_tokens"`
	TotalTokens       int `msgpack:"total_tokens" json:"total_tokens"`
	CachedTokens      int `msgpack:"cached_tokens,omitempty" json:"cached_tokens,omitzero"`
	InputAudioTokens  int `msgpack:"input_audio_tokens,omitempty" json:"input_audio_tokens,omitzero"`
	OutputAudioTokens int `msgpack:"output_audio_tokens,omitempty" json:"output_audio_tokens,omitzero"`
}

// FromUsage builds a Record from a response.done usage block.
func FromUsage(sessionID, responseID, model string, at time.Time, u *openairealtime.Usage) Record {
	r := Record{
		SessionID:  sessionID,
		ResponseID: responseID,
		Time:       at.UTC(),
		Model:      model,
	}
	if u == nil {
		return r
	}
	r.InputTokens = u.InputTokens
	r.OutputTokens = u.OutputTokens
	r.TotalTokens = u.TotalTokens
	if d := u.InputTokenDetails; d != nil {
		r.CachedTokens = d.CachedTokens
		r.InputAudioTokens = d.AudioTokens
	}
	if d := u.OutputTokenDetails; d != nil {
		r.OutputAudioTokens = d.AudioTokens
	}
	return r
}

// Store is an append-only usage log.
type Store interface {
	// Append stores a record.
	Append(ctx context.Context, r Record) error

	// List yields records at or after since, oldest first.
	List(ctx context.Context, since time.Time) iter.Seq2[Record, error]

	// Close releases any resources held by the store.
	Close() error
}

const keyPrefix = "usage:"

// recordKey orders records by time; the response ID keeps keys unique.
func recordKey(r Record) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", keyPrefix, r.Time.UnixNano(), r.ResponseID))
}

func sinceKey(since time.Time) []byte {
	if since.IsZero() {
		return []byte(keyPrefix)
	}
	return []byte(fmt.Sprintf("%s%020d", keyPrefix, since.UnixNano()))
}

func encode(r Record) ([]byte, error) {
	return msgpack.Marshal(&r)
}

func decode(data []byte) (Record, error) {
	var r Record
	if err := msgpack.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("usagelog: decode record: %w", err)
	}
	return r, nil
}

// Totals sums usage across records.
type Totals struct {
	Responses    int `json:"responses"`
	Sessions     int `json:"sessions"`
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Sum aggregates records into Totals.
func Sum(records []Record) Totals {
	var t Totals
	sessions := make(map[string]struct{})
	for _, r := range records {
		t.Responses++
		t.InputTokens += r.InputTokens
		t.OutputTokens += r.OutputTokens
		t.TotalTokens += r.TotalTokens
		sessions[r.SessionID] = struct{}{}
	}
	t.Sessions = len(sessions)
	return t
}

// Collect drains a List iterator.
func Collect(seq iter.Seq2[Record, error]) ([]Record, error) {
	var out []Record
	for r, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
	return out, nil
}

func hasPrefix(key []byte) bool {
	return strings.HasPrefix(string(key), keyPrefix)
}
