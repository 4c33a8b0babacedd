package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Agent types.
const (
	AgentTypeSingle   = "single"
	AgentTypeMultiple = "multiple"
)

// AgentConfig describes one agent in the catalog. ID is the name the agent
// server routes on and the value of client.agent.
type AgentConfig struct {
	ID          string       `toml:"id" mapstructure:"id" json:"id" validate:"required,excludesall=/ "`
	Name        string       `toml:"name,omitempty" mapstructure:"name" json:"name"`
	Description string       `toml:"description,omitempty" mapstructure:"description" json:"description"`
	Type        string       `toml:"type,omitempty" mapstructure:"type" json:"agentType,omitempty" validate:"omitempty,oneof=single multiple"`
	Prompt      string       `toml:"prompt,omitempty" mapstructure:"prompt" json:"prompt,omitempty"`
	Tools       []ToolConfig `toml:"tools,omitempty" mapstructure:"tools" json:"tools,omitempty" validate:"dive"`
}

// ToolConfig is a tool an agent may call. Tools that require human
// intervention wait for the user's approval, usually through a form.
type ToolConfig struct {
	Name                      string `toml:"name" mapstructure:"name" json:"name" validate:"required"`
	RequiresHumanIntervention bool   `toml:"requires_human_intervention,omitempty" mapstructure:"requires_human_intervention" json:"requiresHumanIntervention"`
}

// DisplayName returns Name, or ID when the agent has no name.
func (a AgentConfig) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}

var (
	agentValidateOnce sync.Once
	agentValidate     *validator.Validate
)

// ValidateAgents checks every catalog entry and that ids are unique.
func ValidateAgents(agents []AgentConfig) error {
	agentValidateOnce.Do(func() {
		agentValidate = validator.New(validator.WithRequiredStructEnabled())
	})

	seen := make(map[string]bool, len(agents))
	for i, a := range agents {
		if err := agentValidate.Struct(a); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) && len(verrs) > 0 {
				return fmt.Errorf("agents[%d] (%q): %s failed %q", i, a.ID, verrs[0].Namespace(), verrs[0].Tag())
			}
			return fmt.Errorf("agents[%d]: %w", i, err)
		}
		if seen[a.ID] {
			return fmt.Errorf("agents[%d]: duplicate id %q", i, a.ID)
		}
		seen[a.ID] = true
	}
	return nil
}

// FindAgent returns the catalog entry with the given id.
func (c *Config) FindAgent(id string) (AgentConfig, bool) {
	for _, a := range c.Agents {
		if a.ID == id {
			return a, true
		}
	}
	return AgentConfig{}, false
}

// AgentIDs returns the catalog ids in order.
func (c *Config) AgentIDs() []string {
	ids := make([]string, 0, len(c.Agents))
	for _, a := range c.Agents {
		ids = append(ids, a.ID)
	}
	return ids
}

// CheckAgent reports an error when a catalog is configured and id is not in
// it. Without a catalog any agent id is accepted.
func (c *Config) CheckAgent(id string) error {
	if id == "" {
		return errors.New("no agent selected; pass --agent or set client.agent")
	}
	if len(c.Agents) == 0 {
		return nil
	}
	if _, ok := c.FindAgent(id); ok {
		return nil
	}
	return fmt.Errorf("unknown agent %q (available: %s)", id, strings.Join(c.AgentIDs(), ", "))
}

// DefaultAgents is the catalog of the share agent server.
func DefaultAgents() []AgentConfig {
	return []AgentConfig{
		{
			ID:          "share-agent",
			Name:        "Share Agent",
			Description: "Shares content",
			Type:        AgentTypeSingle,
			Prompt:      "Help me share content",
			Tools: []ToolConfig{
				{Name: "web_search"},
				{Name: "file_operations", RequiresHumanIntervention: true},
			},
		},
		{
			ID:          "share-creation-agent",
			Name:        "Share Creation Agent",
			Description: "Creates share configurations",
			Type:        AgentTypeSingle,
			Prompt:      "Help me create a configuration",
			Tools:       []ToolConfig{{Name: "code_execution"}},
		},
		{
			ID:          "share-test-agent",
			Name:        "Share Test Agent",
			Description: "Tests share configurations",
			Type:        AgentTypeMultiple,
			Prompt:      "Help me test a configuration",
			Tools:       []ToolConfig{{Name: "data_analysis"}},
		},
		{
			ID:          "share-qa-agent",
			Name:        "Share Q&A Agent",
			Description: "Answers questions about sharing",
			Type:        AgentTypeSingle,
			Prompt:      "Help me with a question",
			Tools: []ToolConfig{
				{Name: "web_search"},
				{Name: "image_generation"},
			},
		},
	}
}

// resolveAgents decodes the [[agents]] tables viper read from config.toml.
func resolveAgents(v *viper.Viper) ([]AgentConfig, error) {
	if !v.IsSet("agents") {
		return nil, nil
	}
	var agents []AgentConfig
	if err := v.UnmarshalKey("agents", &agents); err != nil {
		return nil, fmt.Errorf("decoding agents: %w", err)
	}
	if err := ValidateAgents(agents); err != nil {
		return nil, err
	}
	return agents, nil
}
