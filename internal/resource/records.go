package resource

// Message is a system message shown on the dashboard.
type Message struct {
	MessageID      *int64 `json:"message_id,omitempty"`
	MessageCode    string `json:"message_code"`
	MessageContent string `json:"message_content"`
}

func (m Message) Identifier() (int64, bool) {
	if m.MessageID == nil {
		return 0, false
	}
	return *m.MessageID, true
}

func (m Message) Values() []string {
	return []string{m.MessageCode, m.MessageContent}
}

// Position is an organizational position.
type Position struct {
	PositionID   *int64 `json:"position_id,omitempty"`
	PositionCode string `json:"position_code"`
	PositionName string `json:"position_name"`
}

func (p Position) Identifier() (int64, bool) {
	if p.PositionID == nil {
		return 0, false
	}
	return *p.PositionID, true
}

func (p Position) Values() []string {
	return []string{p.PositionCode, p.PositionName}
}

// Messages describes the /messages collection.
var Messages = Resource[Message]{
	Name:       "message",
	Collection: "/messages",
	Fields: []Field{
		{Name: "message_code", Label: "Name", Placeholder: "Name"},
		{Name: "message_content", Label: "Content", Placeholder: "Message Content..."},
	},
	Build: func(values []string) Message {
		return Message{MessageCode: valueAt(values, 0), MessageContent: valueAt(values, 1)}
	},
	Empty: "No messages yet.",
}

// Positions describes the /positions collection.
var Positions = Resource[Position]{
	Name:       "position",
	Collection: "/positions",
	Fields: []Field{
		{Name: "position_code", Label: "Code", Placeholder: "Position Code (e.g., PRES)"},
		{Name: "position_name", Label: "Name", Placeholder: "Position Name (e.g., President)"},
	},
	Build: func(values []string) Position {
		return Position{PositionCode: valueAt(values, 0), PositionName: valueAt(values, 1)}
	},
	Empty: "No positions found. Create one to get started!",
}

func valueAt(values []string, index int) string {
	if index < len(values) {
		return values[index]
	}
	return ""
}
