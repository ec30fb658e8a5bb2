// Package queue carries schema lifecycle events over RabbitMQ: handlers
// publish best-effort audit events, a background consumer appends them to a
// log file.
package queue

// Actions recorded for a schema.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

const schemaQueueName = "schema.events"

// SchemaChangedEvent is published whenever a schema is created, updated or
// deleted.  It carries enough for downstream consumers to audit or notify
// without querying the primary database.
type SchemaChangedEvent struct {
	Action     string `json:"action"`
	SchemaID   string `json:"schema_id"`
	UserID     string `json:"user_id"`
	SchemaName string `json:"schema_name"`
	OccurredAt string `json:"occurred_at"`
}
