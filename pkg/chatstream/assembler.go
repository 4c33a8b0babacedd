package chatstream

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/agentchat/pkg/chat"
	"github.com/papercomputeco/agentchat/pkg/formschema"
)

// Assembler folds fragments into the message being streamed.
//
// The id and timestamp are taken from the first fragment that carries them
// and never change afterwards. Content only grows. A complete schema from a
// fragment replaces the previous one, along with any parse error recorded for
// it; tagged schema text accumulates and is parsed by Finalize.
//
// An Assembler is not safe for concurrent use and must not be used after
// Finalize.
type Assembler struct {
	id        string
	role      chat.Role
	timestamp int64
	content   strings.Builder
	formTitle string

	schemaText  strings.Builder
	schema      formschema.Schema
	schemaDirty bool

	warnings []error

	now   func() time.Time
	newID func() string
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithClock sets the clock used to stamp messages that arrive without a
// timestamp.
func WithClock(now func() time.Time) AssemblerOption {
	return func(a *Assembler) {
		a.now = now
	}
}

// WithIDGenerator sets the generator used for messages that arrive without
// an id.
func WithIDGenerator(newID func() string) AssemblerOption {
	return func(a *Assembler) {
		a.newID = newID
	}
}

// NewAssembler returns an Assembler with an empty message.
func NewAssembler(opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Apply merges f into the running message and returns a snapshot of it.
func (a *Assembler) Apply(f Fragment) chat.Message {
	if a.id == "" && f.ID != "" {
		a.id = f.ID
	}
	if f.Role != "" {
		a.role = f.Role
	}
	if a.timestamp == 0 && f.Timestamp != 0 {
		a.timestamp = f.Timestamp
	}
	if f.FormTitle != "" {
		a.formTitle = f.FormTitle
	}

	a.content.WriteString(f.ContentDelta)

	if f.Schema != nil {
		a.schemaText.Reset()
		a.schemaText.WriteString(f.Schema.Raw)
		a.schema = f.Schema.Parsed
		a.schemaDirty = false
		a.dropSchemaWarnings()
		if f.Schema.Err != nil {
			a.warnings = append(a.warnings, f.Schema.Err)
		}
	}
	if f.SchemaDelta != "" {
		a.schemaText.WriteString(f.SchemaDelta)
		a.schemaDirty = true
	}

	return a.Snapshot()
}

// dropSchemaWarnings forgets parse errors of schemas that a later schema
// replaced.
func (a *Assembler) dropSchemaWarnings() {
	a.warnings = slices.DeleteFunc(a.warnings, func(err error) bool {
		var schemaErr *SchemaParseError
		return errors.As(err, &schemaErr)
	})
}

// Snapshot returns a copy of the running message. It shares no mutable
// state with the Assembler.
func (a *Assembler) Snapshot() chat.Message {
	role := a.role
	if role == "" {
		role = chat.RoleAssistant
	}

	m := chat.Message{
		ID:        a.id,
		Role:      role,
		Content:   a.content.String(),
		Timestamp: a.timestamp,
		Streaming: true,
		FormTitle: a.formTitle,
	}
	if !a.schemaDirty {
		m.FormSchema = a.schema.Clone()
	}
	return m
}

// Warnings returns the non-fatal problems recorded so far.
func (a *Assembler) Warnings() []error {
	return append([]error(nil), a.warnings...)
}

// Finalize completes the message: it fills in a missing id and timestamp,
// trims the content and parses any accumulated schema text. It returns the
// final message and every warning recorded while assembling it.
func (a *Assembler) Finalize() (chat.Message, []error) {
	if a.id == "" {
		a.id = a.newID()
	}
	if a.timestamp == 0 {
		a.timestamp = a.now().UnixMilli()
	}

	if a.schemaDirty {
		a.schema = nil
		a.schemaDirty = false
		if raw := strings.TrimSpace(a.schemaText.String()); raw != "" {
			parsed, err := formschema.Parse(raw)
			if err != nil {
				a.warnings = append(a.warnings, &SchemaParseError{Raw: raw, Err: err})
			} else {
				a.schema = parsed
			}
		}
	}

	m := a.Snapshot()
	m.Content = strings.TrimSpace(m.Content)
	m.Streaming = false
	return m, a.Warnings()
}
