package models

import "time"

// Op is the kind of local write buffered in the mutation queue.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Mutation is one durable queue entry: a pending local write awaiting server
// confirmation. Seq is assigned by the queue and orders entries FIFO; entries
// for the same record must be applied in Seq order so no update is lost.
type Mutation struct {
	Seq        int64     `json:"seq"`
	Op         Op        `json:"op"`
	Kind       Kind      `json:"kind"`
	RecordID   string    `json:"recordId"`
	Record     *Record   `json:"record,omitempty"` // payload snapshot; nil for deletes
	EnqueuedAt time.Time `json:"enqueuedAt"`
}
