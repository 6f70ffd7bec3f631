package memory

import "sort"

const memoryStoreVersion = "19.4.0"

// EventType is the closed set of events the append-only log may contain.
type EventType string

const (
	EventFactAdded   EventType = "FACT_ADDED"
	EventFactExpired EventType = "FACT_EXPIRED"
	EventFactRevoked EventType = "FACT_REVOKED"
)

// MemoryEvent is the common envelope every log entry carries, in addition
// to its event-specific fields.
type MemoryEvent struct {
	SeqNum      int64
	EventType   EventType
	SubjectID   string
	FactID      string
	OccurredAtMS int64
}

// FactAddedEvent is the only event that introduces a fact's content into
// the log; the log never stores an update, only additions, expiries, and
// revocations.
type FactAddedEvent struct {
	MemoryEvent
	Fact        MemoryFact
	ExpiresAtMS int64
}

// FactExpiredEvent marks a prior FactAddedEvent's fact as no longer active
// due to TTL expiry.
type FactExpiredEvent struct {
	MemoryEvent
}

// FactRevokedEvent marks a prior FactAddedEvent's fact as no longer active
// due to an explicit revocation (e.g. a user request to forget it).
type FactRevokedEvent struct {
	MemoryEvent
	Reason string
}

// StoreCaps bounds how many active facts may accumulate per subject.
type StoreCaps struct {
	MaxActiveFactsPerSubject int
}

// ActiveFactMeta is one fact's position in the subject's derived view.
type ActiveFactMeta struct {
	Fact        MemoryFact
	AddedAtMS   int64
	ExpiresAtMS int64
}

// CurrentView is the derived, read-only projection of a subject's active
// facts at a point in time: the event log folded under (now_ms, caps).
type CurrentView struct {
	SubjectID string
	Facts     []ActiveFactMeta
	AsOfMS    int64
	Version   string
}

// Log is an append-only sequence of memory events for one subject. It
// never supports in-place mutation; every state change is a new event.
type Log struct {
	events []interface{}
	seq    int64
}

// NewLog opens an empty event log.
func NewLog() *Log {
	return &Log{}
}

// AppendFactAdded appends a FactAddedEvent and returns its assigned
// sequence number.
func (l *Log) AppendFactAdded(subjectID string, fact MemoryFact, occurredAtMS, expiresAtMS int64) int64 {
	l.seq++
	l.events = append(l.events, FactAddedEvent{
		MemoryEvent: MemoryEvent{SeqNum: l.seq, EventType: EventFactAdded, SubjectID: subjectID, FactID: fact.FactID, OccurredAtMS: occurredAtMS},
		Fact:        fact,
		ExpiresAtMS: expiresAtMS,
	})
	return l.seq
}

// AppendFactRevoked appends a FactRevokedEvent and returns its assigned
// sequence number.
func (l *Log) AppendFactRevoked(subjectID, factID, reason string, occurredAtMS int64) int64 {
	l.seq++
	l.events = append(l.events, FactRevokedEvent{
		MemoryEvent: MemoryEvent{SeqNum: l.seq, EventType: EventFactRevoked, SubjectID: subjectID, FactID: factID, OccurredAtMS: occurredAtMS},
		Reason:      reason,
	})
	return l.seq
}

// Events returns every event appended so far, in append order.
func (l *Log) Events() []interface{} {
	return append([]interface{}(nil), l.events...)
}

// RecomputeCurrentView folds the event log under (nowMS, caps): the same
// log, nowMS, and caps always produce the same view. Expired facts
// (expires_at <= nowMS) and revoked facts are excluded; when more facts
// remain active than the cap allows, the most recently added are kept.
func RecomputeCurrentView(subjectID string, events []interface{}, nowMS int64, caps StoreCaps) CurrentView {
	added := map[string]FactAddedEvent{}
	order := map[string]int64{}
	revoked := map[string]bool{}

	for _, raw := range events {
		switch e := raw.(type) {
		case FactAddedEvent:
			if e.SubjectID != subjectID {
				continue
			}
			added[e.FactID] = e
			order[e.FactID] = e.SeqNum
		case FactRevokedEvent:
			if e.SubjectID != subjectID {
				continue
			}
			revoked[e.FactID] = true
		}
	}

	var active []ActiveFactMeta
	for factID, e := range added {
		if revoked[factID] {
			continue
		}
		if e.ExpiresAtMS <= nowMS {
			continue
		}
		active = append(active, ActiveFactMeta{Fact: e.Fact, AddedAtMS: e.OccurredAtMS, ExpiresAtMS: e.ExpiresAtMS})
	}

	sort.SliceStable(active, func(i, j int) bool {
		a, b := active[i], active[j]
		if a.Fact.Category != b.Fact.Category {
			return a.Fact.Category < b.Fact.Category
		}
		if a.Fact.Provenance.Confidence != b.Fact.Provenance.Confidence {
			return a.Fact.Provenance.Confidence > b.Fact.Provenance.Confidence
		}
		if a.AddedAtMS != b.AddedAtMS {
			return a.AddedAtMS < b.AddedAtMS
		}
		return a.Fact.FactID < b.Fact.FactID
	})

	if caps.MaxActiveFactsPerSubject > 0 && len(active) > caps.MaxActiveFactsPerSubject {
		sort.SliceStable(active, func(i, j int) bool { return active[i].AddedAtMS > active[j].AddedAtMS })
		active = active[:caps.MaxActiveFactsPerSubject]
		sort.SliceStable(active, func(i, j int) bool {
			a, b := active[i], active[j]
			if a.Fact.Category != b.Fact.Category {
				return a.Fact.Category < b.Fact.Category
			}
			if a.Fact.Provenance.Confidence != b.Fact.Provenance.Confidence {
				return a.Fact.Provenance.Confidence > b.Fact.Provenance.Confidence
			}
			if a.AddedAtMS != b.AddedAtMS {
				return a.AddedAtMS < b.AddedAtMS
			}
			return a.Fact.FactID < b.Fact.FactID
		})
	}

	return CurrentView{SubjectID: subjectID, Facts: active, AsOfMS: nowMS, Version: memoryStoreVersion}
}
