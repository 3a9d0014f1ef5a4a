package fitenergy

// MessageKind names a FIT message category.
type MessageKind string

const (
	KindRecord  MessageKind = "record"
	KindSession MessageKind = "session"
	KindLap     MessageKind = "lap"
)

// Fields is one decoded message keyed by FIT profile field name. Fields that
// are invalid in the file are simply not present.
type Fields map[string]any

// MessageSource is the decoded message stream of one activity file.
type MessageSource interface {
	Messages(kind MessageKind) []Fields
}

// StaticSource is a MessageSource backed by in-memory message lists.
type StaticSource map[MessageKind][]Fields

// Messages implements MessageSource.
func (s StaticSource) Messages(kind MessageKind) []Fields {
	return s[kind]
}
