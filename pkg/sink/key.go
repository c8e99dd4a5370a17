package sink

import (
	"strings"
)

const keyPrefix = "jdy"

// EntryRef identifies the entry whose records are written.
type EntryRef struct {
	AppID   string
	EntryID string
}

// String returns "app/entry".
func (r EntryRef) String() string {
	return r.AppID + "/" + r.EntryID
}

// RecordsKey returns the Redis hash holding the entry's records.
//
// Example:
//
//	jdy:5b1747e93b708d0a80667400:5b1749ae3b708d0a80667408:records
func (r EntryRef) RecordsKey() string {
	return r.key(":", "records")
}

// SyncedAtKey returns the Redis key holding the time of the last write.
func (r EntryRef) SyncedAtKey() string {
	return r.key(":", "synced_at")
}

// Subject returns the default NATS subject for the entry's records.
func (r EntryRef) Subject() string {
	return r.key(".", "records")
}

func (r EntryRef) key(sep, suffix string) string {
	parts := []string{keyPrefix}
	for _, p := range []string{r.AppID, r.EntryID} {
		p = strings.TrimSpace(p)
		if sep == "." {
			// NATS tokens must not contain separators or wildcards.
			p = strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_").Replace(p)
		}
		if p != "" {
			parts = append(parts, p)
		}
	}
	parts = append(parts, suffix)
	return strings.Join(parts, sep)
}
