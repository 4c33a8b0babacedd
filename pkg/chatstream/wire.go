package chatstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/papercomputeco/agentchat/pkg/chat"
)

// wireMessage is a message object as agents send it. Field names vary
// between agent versions, so several aliases are accepted.
type wireMessage struct {
	ID          flexString      `json:"id"`
	Role        string          `json:"role"`
	ChatContent *string         `json:"chatContent"`
	Content     *string         `json:"content"`
	Timestamp   epochMillis     `json:"timestamp"`
	CreatedAt   epochMillis     `json:"createdAt"`
	CreatedAt2  epochMillis     `json:"created_at"`
	FormSchema  json.RawMessage `json:"formSchema"`
	FormTitle   string          `json:"formTitle"`
}

func (m *wireMessage) content() (string, bool) {
	switch {
	case m.ChatContent != nil:
		return *m.ChatContent, true
	case m.Content != nil:
		return *m.Content, true
	}
	return "", false
}

func (m *wireMessage) timestamp() int64 {
	for _, ts := range []epochMillis{m.Timestamp, m.CreatedAt, m.CreatedAt2} {
		if ts != 0 {
			return int64(ts)
		}
	}
	return 0
}

func (m *wireMessage) role() chat.Role {
	r := chat.Role(strings.ToLower(m.Role))
	if r.Valid() {
		return r
	}
	return ""
}

// schemaText returns the schema field as text, or "" when absent. A
// string-encoded schema is unwrapped.
func (m *wireMessage) schemaText() string {
	raw := bytes.TrimSpace(m.FormSchema)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err == nil {
			return strings.TrimSpace(inner)
		}
	}
	return string(raw)
}

func decodeWireMessage(data string) (*wireMessage, error) {
	trimmed := strings.TrimSpace(data)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, fmt.Errorf("frame is not a JSON object")
	}
	var m wireMessage
	if err := json.Unmarshal([]byte(trimmed), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// flexString accepts a JSON string or number.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*s = flexString(n.String())
	return nil
}

// epochMillis accepts epoch milliseconds as a number or numeric string, or
// an RFC 3339 timestamp.
type epochMillis int64

func (t *epochMillis) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		v = strings.TrimSpace(v)
		if v == "" {
			return nil
		}
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			*t = epochMillis(n)
			return nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return fmt.Errorf("unrecognized timestamp %q", v)
		}
		*t = epochMillis(parsed.UnixMilli())
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("timestamp must be a number or string: %w", err)
	}
	*t = epochMillis(n)
	return nil
}
