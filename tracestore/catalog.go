package tracestore

// Producer describes an entity producing events (a thread, a CPU, a process ...).
type Producer struct {
	ID       int32
	Name     string
	Type     string
	LocalID  string
	ParentID int32 // -1 for root producers
}

// EventType describes a kind of event and the category all events of this type share.
type EventType struct {
	ID       int32
	Name     string
	Category Category
}
