package chatstream

import (
	"github.com/papercomputeco/agentchat/pkg/chat"
	"github.com/papercomputeco/agentchat/pkg/formschema"
)

// Fragment is the incremental update one frame contributes to a message.
// Zero fields mean "no information".
type Fragment struct {
	ID        string
	Role      chat.Role
	Timestamp int64 // epoch milliseconds

	// ContentDelta is appended to the message content.
	ContentDelta string

	// SchemaDelta is raw form schema text from a tagged section. It is
	// appended and parsed once when the message is finalized.
	SchemaDelta string

	// Schema, when set, replaces the message's form schema.
	Schema *SchemaUpdate

	FormTitle string
}

// SchemaUpdate is a complete form schema delivered in one frame, already
// parsed. Err is set when Raw could not be parsed.
type SchemaUpdate struct {
	Raw    string
	Parsed formschema.Schema
	Err    error
}

// Empty reports whether the fragment carries nothing.
func (f Fragment) Empty() bool {
	return f.ID == "" && f.Role == "" && f.Timestamp == 0 && f.ContentDelta == "" &&
		f.SchemaDelta == "" && f.Schema == nil && f.FormTitle == ""
}

func newSchemaUpdate(raw string) *SchemaUpdate {
	u := &SchemaUpdate{Raw: raw}
	parsed, err := formschema.Parse(raw)
	if err != nil {
		u.Err = &SchemaParseError{Raw: raw, Err: err}
		return u
	}
	u.Parsed = parsed
	return u
}
