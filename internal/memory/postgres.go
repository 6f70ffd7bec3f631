package memory

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// EventStore persists FactAddedEvent and FactRevokedEvent rows and loads a
// subject's event history back out, in append order.
type EventStore interface {
	AppendFactAdded(ctx context.Context, subjectID string, fact MemoryFact, occurredAtMS, expiresAtMS int64) error
	AppendFactRevoked(ctx context.Context, subjectID, factID, reason string, occurredAtMS int64) error
	LoadEvents(ctx context.Context, subjectID string) ([]interface{}, error)
}

// PostgresEventStore implements EventStore against an append-only
// memory_events table, the same insert-only idiom
// orchestrator/cost/postgres_repository.go uses for budget rows, minus the
// upsert: memory events are never updated in place.
type PostgresEventStore struct {
	db *sql.DB
}

func NewPostgresEventStore(db *sql.DB) *PostgresEventStore {
	return &PostgresEventStore{db: db}
}

func (s *PostgresEventStore) AppendFactAdded(ctx context.Context, subjectID string, fact MemoryFact, occurredAtMS, expiresAtMS int64) error {
	const query = `
		INSERT INTO memory_events
			(id, subject_id, event_type, fact_id, category, fact_key, fact_value, value_type,
			 provenance_type, confidence, tags, occurred_at_ms, expires_at_ms, reason)
		VALUES ($1, $2, 'FACT_ADDED', $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NULL)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.New(), subjectID, fact.FactID, string(fact.Category), fact.Key, fact.Value, string(fact.ValueType),
		string(fact.Provenance.Type), fact.Provenance.Confidence, tagsToArray(fact.Tags), occurredAtMS, expiresAtMS)
	return err
}

func (s *PostgresEventStore) AppendFactRevoked(ctx context.Context, subjectID, factID, reason string, occurredAtMS int64) error {
	const query = `
		INSERT INTO memory_events
			(id, subject_id, event_type, fact_id, occurred_at_ms, reason)
		VALUES ($1, $2, 'FACT_REVOKED', $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query, uuid.New(), subjectID, factID, occurredAtMS, reason)
	return err
}

func (s *PostgresEventStore) LoadEvents(ctx context.Context, subjectID string) ([]interface{}, error) {
	const query = `
		SELECT event_type, fact_id, category, fact_key, fact_value, value_type,
		       provenance_type, confidence, tags, occurred_at_ms, expires_at_ms, reason
		FROM memory_events
		WHERE subject_id = $1
		ORDER BY occurred_at_ms, fact_id
	`
	rows, err := s.db.QueryContext(ctx, query, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []interface{}
	for rows.Next() {
		var (
			eventType, factID, category, key, value, valueType string
			provenanceType                                     sql.NullString
			confidence                                         sql.NullFloat64
			tags                                                []byte
			occurredAtMS, expiresAtMS                          sql.NullInt64
			reason                                             sql.NullString
		)
		if err := rows.Scan(&eventType, &factID, &category, &key, &value, &valueType,
			&provenanceType, &confidence, &tags, &occurredAtMS, &expiresAtMS, &reason); err != nil {
			return nil, err
		}
		switch eventType {
		case string(EventFactAdded):
			events = append(events, FactAddedEvent{
				MemoryEvent: MemoryEvent{EventType: EventFactAdded, SubjectID: subjectID, FactID: factID, OccurredAtMS: occurredAtMS.Int64},
				Fact: MemoryFact{
					FactID: factID, Category: MemoryCategory(category), Key: key, Value: value,
					ValueType: MemoryValueType(valueType),
					Provenance: Provenance{Type: ProvenanceType(provenanceType.String), Confidence: confidence.Float64},
					Tags:      arrayToTags(tags),
				},
				ExpiresAtMS: expiresAtMS.Int64,
			})
		case string(EventFactRevoked):
			events = append(events, FactRevokedEvent{
				MemoryEvent: MemoryEvent{EventType: EventFactRevoked, SubjectID: subjectID, FactID: factID, OccurredAtMS: occurredAtMS.Int64},
				Reason:      reason.String,
			})
		}
	}
	return events, rows.Err()
}

func tagsToArray(tags []string) string {
	joined := ""
	for i, t := range tags {
		if i > 0 {
			joined += ","
		}
		joined += t
	}
	return "{" + joined + "}"
}

func arrayToTags(raw []byte) []string {
	s := string(raw)
	if len(s) < 2 {
		return nil
	}
	inner := s[1 : len(s)-1]
	if inner == "" {
		return nil
	}
	var tags []string
	start := 0
	for i := 0; i <= len(inner); i++ {
		if i == len(inner) || inner[i] == ',' {
			tags = append(tags, inner[start:i])
			start = i + 1
		}
	}
	return tags
}
