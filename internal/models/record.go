// Package models defines the record shapes shared by the Pawkit client and
// server: the sync envelope, the typed payloads behind it, and the queue and
// session types used by the sync engine.
package models

import (
	"encoding/json"
	"time"

	"github.com/pawkit/pawkit/internal/common"
)

// Kind classifies a record.
type Kind string

const (
	KindCard       Kind = "card"
	KindCollection Kind = "collection"
	KindEvent      Kind = "event"
	KindTodo       Kind = "todo"
)

// Kinds lists every record kind in the order delta sync pulls them.
var Kinds = []Kind{KindCard, KindCollection, KindEvent, KindTodo}

// Resource returns the REST resource segment for the kind ("cards", ...).
func (k Kind) Resource() string {
	return string(k) + "s"
}

// KindFromResource maps a REST resource segment back to a Kind.
func KindFromResource(resource string) (Kind, error) {
	for _, k := range Kinds {
		if k.Resource() == resource {
			return k, nil
		}
	}
	return "", common.ErrUnknownRecordKind
}

// Record is the sync envelope every kind shares. Domain fields live in
// Payload as JSON; UpdatedAt doubles as the record version (last-write-wins,
// no separate counter). Deleted records are kept until an explicit purge so
// deletions propagate to other devices.
type Record struct {
	ID          string          `json:"id"`
	WorkspaceID string          `json:"workspaceId"`
	Kind        Kind            `json:"kind"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	Deleted     bool            `json:"deleted"`
	DeletedAt   *time.Time      `json:"deletedAt,omitempty"`
}

// NewerThan reports whether r should win a last-write-wins merge against
// other. Equal timestamps do not count as newer, so ties keep the local copy.
func (r *Record) NewerThan(other *Record) bool {
	return r.UpdatedAt.After(other.UpdatedAt)
}

// Card is a saved link, note or file.
type Card struct {
	Type            string   `json:"type"` // url, note, file
	URL             string   `json:"url,omitempty"`
	Title           string   `json:"title"`
	Notes           string   `json:"notes,omitempty"`
	CollectionID    string   `json:"collectionId,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	ReadingProgress int      `json:"readingProgress,omitempty"` // percent 0-100
}

// Collection is a node in the hierarchical collection tree.
type Collection struct {
	Name     string `json:"name"`
	ParentID string `json:"parentId,omitempty"`
}

// Event is a calendar entry.
type Event struct {
	Title  string    `json:"title"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	AllDay bool      `json:"allDay,omitempty"`
	Notes  string    `json:"notes,omitempty"`
}

// Todo is a checklist item, optionally scheduled.
type Todo struct {
	Title   string     `json:"title"`
	Done    bool       `json:"done"`
	DueDate *time.Time `json:"dueDate,omitempty"`
	Notes   string     `json:"notes,omitempty"`
}

// Wrap marshals a typed payload into a Record envelope.
func Wrap[T any](kind Kind, id, workspaceID string, v T, now time.Time) (*Record, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &Record{
		ID:          id,
		WorkspaceID: workspaceID,
		Kind:        kind,
		Payload:     b,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Unwrap decodes the payload into v, which should be a pointer to the
// concrete type for the record's kind (Card, Collection, Event, Todo).
func (r *Record) Unwrap(v any) error {
	return json.Unmarshal(r.Payload, v)
}
