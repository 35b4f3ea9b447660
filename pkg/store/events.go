package store

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"
)

// Event is one recorded mutation of a single item of an event-sourced
// dictionary. Events are ordered by (Timestamp, Seq); Seq is a
// log-scoped, strictly increasing insertion sequence that breaks ties
// between events sharing a millisecond timestamp.
type Event struct {
	Timestamp int64
	Seq       uint64
	Item      string
	Op        OpKind
	Value     any
}

// Update is one requested mutation passed to Apply: an operator and,
// for replace and binary combines, its operand.
type Update struct {
	Item  string
	Op    OpKind
	Value any
}

// Assign is the bare-value update form: a plain replace.
func Assign(item string, value any) Update {
	return Update{Item: item, Op: OpReplace, Value: value}
}

// rawEvent is the stored form; Arg is the pipeline-encoded operand,
// absent for delete and unary transforms.
type rawEvent struct {
	T    int64  `json:"t"`
	Seq  uint64 `json:"seq"`
	Item string `json:"item"`
	Op   OpKind `json:"op"`
	Arg  []byte `json:"arg,omitempty"`
}

// eventLog is the single physical value a whole log is stored as. Every
// Apply and Prune is an atomic one-key rewrite of this blob.
type eventLog struct {
	NextSeq uint64     `json:"next_seq"`
	Events  []rawEvent `json:"events"`
}

func (s *Store) loadLog(name string) (*eventLog, bool, error) {
	data, err := s.backend.Get(s.physicalKey(tagEV, name))
	if err != nil {
		if isBackendNotFound(err) {
			return &eventLog{}, false, nil
		}
		return nil, false, backendErr("get", name, err)
	}
	var log eventLog
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, false, fmt.Errorf("%w: event log blob: %w", ErrDecode, err)
	}
	return &log, true, nil
}

func (s *Store) saveLog(name string, log *eventLog) error {
	data, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("marshal event log blob: %w", err)
	}
	if err := s.backend.Put(s.physicalKey(tagEV, name), data); err != nil {
		return backendErr("put", name, err)
	}
	return nil
}

// Apply appends one event per update to the dictionary's log, all
// sharing the call's timestamp and taking consecutive sequence numbers,
// in a single atomic blob rewrite. It returns the current state after
// the append. Applying no updates is a no-op that returns the current
// state when the dictionary exists, nil otherwise.
func (s *Store) Apply(name string, updates ...Update) (map[string]any, error) {
	return s.applyAt(name, time.Now().UnixMilli(), false, updates)
}

// ApplyAt is Apply at an explicit timestamp, inserting the events into
// their (timestamp, sequence) position. It fails with ErrConflict when
// the log already holds events at that timestamp.
func (s *Store) ApplyAt(name string, timestamp int64, updates ...Update) (map[string]any, error) {
	return s.applyAt(name, timestamp, true, updates)
}

func (s *Store) applyAt(name string, timestamp int64, checkConflict bool, updates []Update) (map[string]any, error) {
	if err := s.writable(); err != nil {
		return nil, err
	}

	for _, u := range updates {
		takesValue, known := opTakesValue(u.Op)
		if !known {
			return nil, fmt.Errorf("%w: %q", ErrInvalidOperator, u.Op)
		}
		if !takesValue && u.Value != nil {
			return nil, fmt.Errorf("%w: %q takes no value", ErrInvalidOperator, u.Op)
		}
	}

	log, exists, err := s.loadLog(name)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		if !exists {
			return nil, nil
		}
		return s.fold(log.Events)
	}

	if checkConflict {
		for _, ev := range log.Events {
			if ev.T == timestamp {
				return nil, fmt.Errorf("%w: %s at %d", ErrConflict, name, timestamp)
			}
		}
	}

	fresh := make([]rawEvent, 0, len(updates))
	for _, u := range updates {
		raw := rawEvent{T: timestamp, Seq: log.NextSeq, Item: u.Item, Op: u.Op}
		log.NextSeq++
		if takesValue, _ := opTakesValue(u.Op); takesValue {
			arg, err := s.encodeValue(u.Value)
			if err != nil {
				return nil, err
			}
			raw.Arg = arg
		}
		fresh = append(fresh, raw)
	}

	// Insert after every event at or before the timestamp so the blob
	// stays sorted by (timestamp, sequence).
	pos := sort.Search(len(log.Events), func(i int) bool {
		return log.Events[i].T > timestamp
	})
	log.Events = append(log.Events[:pos], append(fresh, log.Events[pos:]...)...)

	// Fold before persisting so an update that cannot replay, such as a
	// numeric combine on a string item, never reaches the log.
	state, err := s.fold(log.Events)
	if err != nil {
		return nil, err
	}
	if err := s.saveLog(name, log); err != nil {
		return nil, err
	}
	return state, nil
}

// Current returns the dictionary obtained by folding the full event log
// in order, or ErrNotFound for an unknown dictionary.
func (s *Store) Current(name string) (map[string]any, error) {
	if err := s.readable(); err != nil {
		return nil, err
	}

	log, exists, err := s.loadLog(name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}
	return s.fold(log.Events)
}

// Past returns the dictionary as it existed at the given timestamp:
// the fold restricted to events with Timestamp <= t.
func (s *Store) Past(name string, t int64) (map[string]any, error) {
	if err := s.readable(); err != nil {
		return nil, err
	}

	log, exists, err := s.loadLog(name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}

	cut := sort.Search(len(log.Events), func(i int) bool {
		return log.Events[i].T > t
	})
	return s.fold(log.Events[:cut])
}

// fold replays events into an empty dictionary. Replace sets, delete
// removes, binary combines start a missing item from the operator's
// identity and unary transforms from its zero value.
func (s *Store) fold(events []rawEvent) (map[string]any, error) {
	state := make(map[string]any)
	for _, ev := range events {
		switch {
		case ev.Op == OpReplace:
			value, err := s.decodeValue(ev.Arg)
			if err != nil {
				return nil, err
			}
			state[ev.Item] = value
		case ev.Op == OpDelete:
			delete(state, ev.Item)
		default:
			if op, ok := binaryOps[ev.Op]; ok {
				value, err := s.decodeValue(ev.Arg)
				if err != nil {
					return nil, err
				}
				existing, present := state[ev.Item]
				if !present {
					existing = op.identity
				}
				next, err := op.apply(existing, value)
				if err != nil {
					return nil, err
				}
				state[ev.Item] = next
				continue
			}
			if op, ok := unaryOps[ev.Op]; ok {
				existing, present := state[ev.Item]
				if !present {
					existing = op.zero
				}
				next, err := op.apply(existing)
				if err != nil {
					return nil, err
				}
				state[ev.Item] = next
				continue
			}
			return nil, fmt.Errorf("%w: stored event names %q", ErrInvalidOperator, ev.Op)
		}
	}
	return state, nil
}

// Events returns the raw ordered log, or ErrNotFound for an unknown
// dictionary.
func (s *Store) Events(name string) ([]Event, error) {
	return s.EventsRange(name, math.MinInt64, math.MaxInt64)
}

// EventsRange returns the events with timestamps in [start, end],
// optionally restricted to the given operator kinds.
func (s *Store) EventsRange(name string, start, end int64, ops ...OpKind) ([]Event, error) {
	if err := s.readable(); err != nil {
		return nil, err
	}

	log, exists, err := s.loadLog(name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}

	keep := func(op OpKind) bool {
		if len(ops) == 0 {
			return true
		}
		for _, o := range ops {
			if o == op {
				return true
			}
		}
		return false
	}

	var events []Event
	for _, ev := range log.Events {
		if ev.T < start || ev.T > end || !keep(ev.Op) {
			continue
		}
		decoded, err := s.decodeEvent(ev)
		if err != nil {
			return nil, err
		}
		events = append(events, decoded)
	}
	return events, nil
}

func (s *Store) decodeEvent(ev rawEvent) (Event, error) {
	out := Event{Timestamp: ev.T, Seq: ev.Seq, Item: ev.Item, Op: ev.Op}
	if ev.Arg != nil {
		value, err := s.decodeValue(ev.Arg)
		if err != nil {
			return Event{}, err
		}
		out.Value = value
	}
	return out, nil
}

// Prune computes the minimal event sequence that replays to the same
// current state: per item, everything before the latest replace is
// dropped, and items absent from the current state lose their events
// entirely. With remove=true the stored log is replaced by the pruned
// one (deleted outright when nothing remains); with remove=false the
// pruned sequence is returned without touching storage.
func (s *Store) Prune(name string, remove bool) ([]Event, error) {
	if remove {
		if err := s.writable(); err != nil {
			return nil, err
		}
	} else if err := s.readable(); err != nil {
		return nil, err
	}

	log, exists, err := s.loadLog(name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}

	final, err := s.fold(log.Events)
	if err != nil {
		return nil, err
	}

	lastReplace := make(map[string]int)
	for i, ev := range log.Events {
		if ev.Op == OpReplace {
			lastReplace[ev.Item] = i
		}
	}

	kept := make([]rawEvent, 0, len(log.Events))
	for i, ev := range log.Events {
		if _, present := final[ev.Item]; !present {
			continue
		}
		if idx, ok := lastReplace[ev.Item]; ok && i < idx {
			continue
		}
		kept = append(kept, ev)
	}

	if remove {
		if len(kept) == 0 {
			if err := s.backend.Delete(s.physicalKey(tagEV, name)); err != nil {
				return nil, backendErr("delete", name, err)
			}
		} else {
			pruned := &eventLog{NextSeq: log.NextSeq, Events: kept}
			if err := s.saveLog(name, pruned); err != nil {
				return nil, err
			}
		}
		s.logger.Debug().Str("name", name).
			Int("events", len(log.Events)).Int("kept", len(kept)).
			Msg("event log pruned")
	}

	events := make([]Event, 0, len(kept))
	for _, ev := range kept {
		decoded, err := s.decodeEvent(ev)
		if err != nil {
			return nil, err
		}
		events = append(events, decoded)
	}
	return events, nil
}

// EventSources lists all dictionaries with a non-empty event log in the
// namespace.
func (s *Store) EventSources() ([]string, error) {
	if err := s.readable(); err != nil {
		return nil, err
	}
	return s.scanLogicalKeys(tagEV)
}
