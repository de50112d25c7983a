package knowledge

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"graphmind/backend/internal/graph"
)

// AuditLog is the append-only trail of graph mutations. Records are
// never rewritten or removed.
type AuditLog struct {
	mu      sync.Mutex
	updates []graph.GraphUpdate
}

func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

// Record appends one update, stamping id and timestamp.
func (l *AuditLog) Record(updateType, sessionID, messageID string, update graph.GraphUpdate) graph.GraphUpdate {
	update.ID = uuid.New().String()
	update.UpdateType = updateType
	update.SessionID = sessionID
	update.MessageID = messageID
	update.Timestamp = time.Now().UTC()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.updates = append(l.updates, update)
	return update
}

// Snapshot returns a copy of the trail.
func (l *AuditLog) Snapshot() []graph.GraphUpdate {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]graph.GraphUpdate, len(l.updates))
	copy(out, l.updates)
	return out
}

// Len returns the number of recorded updates.
func (l *AuditLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.updates)
}

// CountType returns how many records carry the given update type.
func (l *AuditLog) CountType(updateType string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int64
	for _, u := range l.updates {
		if u.UpdateType == updateType {
			n++
		}
	}
	return n
}
