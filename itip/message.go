package itip

// Method is an iTIP scheduling method as defined by RFC 5546.
type Method string

const (
	MethodRequest        Method = "REQUEST"
	MethodReply          Method = "REPLY"
	MethodCancel         Method = "CANCEL"
	MethodAdd            Method = "ADD"
	MethodRefresh        Method = "REFRESH"
	MethodCounter        Method = "COUNTER"
	MethodDeclineCounter Method = "DECLINECOUNTER"
	MethodPublish        Method = "PUBLISH"
)

// Message is one parsed incoming scheduling message. It is produced by an
// external parser once per mail and is treated as immutable by the engine.
type Message struct {
	Method Method

	// Event is the primary transmitted event, usually the series master.
	// May be nil for messages that only transmit exceptions.
	Event *Event

	// Exceptions are the transmitted recurrence exceptions, in wire order.
	Exceptions []*Event

	// Owner is the numeric identifier of the calendar user the message is
	// targeted at. This can differ from the acting session user when a
	// shared or delegated calendar is involved.
	Owner int

	// Features carries per-message feature flags set by the parser.
	Features map[string]bool
}

// UID returns the UID of the transmitted calendar object.
func (m *Message) UID() string {
	if m.Event != nil {
		return m.Event.UID
	}
	for _, e := range m.Exceptions {
		if e != nil {
			return e.UID
		}
	}
	return ""
}

// Events returns the primary event followed by all exceptions.
func (m *Message) Events() []*Event {
	events := make([]*Event, 0, len(m.Exceptions)+1)
	if m.Event != nil {
		events = append(events, m.Event)
	}
	events = append(events, m.Exceptions...)
	return events
}

// Mail header carrying the marker for messages generated by the calendar
// service itself rather than by a remote scheduling peer. Header maps
// handed to the engine are lower-cased by the mail layer.
const HeaderInternalNotification = "x-calendar-notification"
