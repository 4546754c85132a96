package cache

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func TestEntryStaleAfter(t *testing.T) {
	fresh := Entry{Timestamp: time.Now().Add(-time.Minute)}
	assert.Equal(t, false, fresh.StaleAfter(5*time.Minute))
	assert.Equal(t, true, fresh.StaleAfter(30*time.Second))

	old := Entry{Timestamp: time.Now().Add(-2 * time.Hour)}
	assert.Equal(t, true, old.StaleAfter(TTLAnalysis))
}

func TestEntryRoundTrip(t *testing.T) {
	payload, err := json.Marshal([]string{"https://example.com/a"})
	assert.Equal(t, nil, err)

	raw, err := json.Marshal(Entry{Timestamp: time.Now(), Payload: payload})
	assert.Equal(t, nil, err)

	var entry Entry
	assert.Equal(t, nil, json.Unmarshal(raw, &entry))

	var urls []string
	assert.Equal(t, nil, json.Unmarshal(entry.Payload, &urls))
	assert.Equal(t, 1, len(urls))
	assert.Equal(t, "https://example.com/a", urls[0])
}
