package model

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
)

// EventRecord is one element of events.json.
// Implementations: *PublicEvent, *BlockedSlot, *UnknownEvent.
type EventRecord interface {
	RecordID() int
	Kind() Kind
	// EventDate returns the raw date string, possibly empty or malformed.
	EventDate() string
	CloneRecord() EventRecord
	eventRecord()
}

// PublicEvent is a published event shown on the website.
type PublicEvent struct {
	ID          int       `json:"id"`
	Title       Bilingual `json:"title"`
	Description Bilingual `json:"description"`
	Category    string    `json:"category"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Price       string    `json:"price"`
	TicketURL   string    `json:"ticketUrl"`
	Image       string    `json:"image"`
}

func (e *PublicEvent) RecordID() int     { return e.ID }
func (e *PublicEvent) Kind() Kind        { return KindEvent }
func (e *PublicEvent) EventDate() string { return e.Date }
func (e *PublicEvent) eventRecord()      {}

func (e *PublicEvent) CloneRecord() EventRecord {
	c := *e
	return &c
}

func (e PublicEvent) MarshalJSON() ([]byte, error) {
	type plain PublicEvent
	return marshalNoEscape(struct {
		ID   int  `json:"id"`
		Type Kind `json:"type"`
		plain
	}{ID: e.ID, Type: KindEvent, plain: plain(e)})
}

// BlockedSlot reserves the venue (or some rooms of it) without publishing an
// event. An empty Rooms list blocks every room.
type BlockedSlot struct {
	ID        int    `json:"id"`
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Reason    string `json:"reason,omitempty"`
	Status    Status `json:"status,omitempty"`
	Rooms     []Room `json:"room,omitempty"`
}

func (b *BlockedSlot) RecordID() int     { return b.ID }
func (b *BlockedSlot) Kind() Kind        { return KindBlocked }
func (b *BlockedSlot) EventDate() string { return b.Date }
func (b *BlockedSlot) eventRecord()      {}

func (b *BlockedSlot) CloneRecord() EventRecord {
	c := *b
	c.Rooms = slices.Clone(b.Rooms)
	return &c
}

// Blocks reports whether room r is unavailable during the slot.
func (b *BlockedSlot) Blocks(r Room) bool {
	return len(b.Rooms) == 0 || slices.Contains(b.Rooms, r)
}

func (b BlockedSlot) MarshalJSON() ([]byte, error) {
	type plain BlockedSlot
	return marshalNoEscape(struct {
		ID   int  `json:"id"`
		Type Kind `json:"type"`
		plain
	}{ID: b.ID, Type: KindBlocked, plain: plain(b)})
}

// UnknownEvent keeps an events.json element that is neither a public event
// nor a blocked slot, so that saving never drops it.
type UnknownEvent struct {
	Fields map[string]json.RawMessage
}

func (u *UnknownEvent) RecordID() int {
	var id int
	if raw, ok := u.Fields["id"]; ok {
		_ = json.Unmarshal(raw, &id)
	}
	return id
}

// Kind returns the stored tag verbatim, which may be empty.
func (u *UnknownEvent) Kind() Kind {
	var k string
	if raw, ok := u.Fields["type"]; ok {
		_ = json.Unmarshal(raw, &k)
	}
	return Kind(k)
}

func (u *UnknownEvent) EventDate() string {
	var d string
	if raw, ok := u.Fields["date"]; ok {
		_ = json.Unmarshal(raw, &d)
	}
	return d
}

func (u *UnknownEvent) eventRecord() {}

func (u *UnknownEvent) CloneRecord() EventRecord {
	c := &UnknownEvent{Fields: make(map[string]json.RawMessage, len(u.Fields))}
	for k, v := range u.Fields {
		c.Fields[k] = slices.Clone(v)
	}
	return c
}

// SetID overwrites the stored id.
func (u *UnknownEvent) SetID(id int) {
	raw, _ := json.Marshal(id)
	if u.Fields == nil {
		u.Fields = map[string]json.RawMessage{}
	}
	u.Fields["id"] = raw
}

func (u UnknownEvent) MarshalJSON() ([]byte, error) {
	if u.Fields == nil {
		return []byte("{}"), nil
	}
	// Key order of unknown records is not preserved; emit sorted for stable diffs.
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range slices.Sorted(maps.Keys(u.Fields)) {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalNoEscape(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(u.Fields[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Events is the ordered content of events.json.
type Events []EventRecord

// DecodeEvent decodes one events.json element. Elements whose tag is unknown,
// or whose payload does not fit the tagged variant, come back as *UnknownEvent.
func DecodeEvent(raw json.RawMessage) (EventRecord, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}

	var tag string
	if t, ok := fields["type"]; ok {
		_ = json.Unmarshal(t, &tag)
	}

	switch Kind(tag) {
	case KindEvent:
		var e PublicEvent
		if err := json.Unmarshal(raw, &e); err == nil {
			return &e, nil
		}
	case KindBlocked:
		var b BlockedSlot
		if err := json.Unmarshal(raw, &b); err == nil {
			return &b, nil
		}
	}
	return &UnknownEvent{Fields: fields}, nil
}

func (es *Events) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	out := make(Events, 0, len(raws))
	for _, raw := range raws {
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			continue
		}
		rec, err := DecodeEvent(raw)
		if err != nil {
			return err
		}
		out = append(out, rec)
	}
	*es = out
	return nil
}

// Clone returns a deep copy of every record.
func (es Events) Clone() Events {
	if es == nil {
		return nil
	}
	out := make(Events, len(es))
	for i, e := range es {
		out[i] = e.CloneRecord()
	}
	return out
}

// Public returns the public events in collection order.
func (es Events) Public() []*PublicEvent {
	var out []*PublicEvent
	for _, e := range es {
		if pe, ok := e.(*PublicEvent); ok {
			out = append(out, pe)
		}
	}
	return out
}

// Blocked returns the blocked slots in collection order.
func (es Events) Blocked() []*BlockedSlot {
	var out []*BlockedSlot
	for _, e := range es {
		if b, ok := e.(*BlockedSlot); ok {
			out = append(out, b)
		}
	}
	return out
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
