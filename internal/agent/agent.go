// Package agent manages purge agent definitions: named destination
// configurations loaded from a YAML document and compiled into validated
// agents. Invalid definitions are retained with their validation error and
// reported on use rather than failing the whole document.
package agent

import (
	"fmt"
	"os"
	"strings"

	"github.com/edgepurge/akamai-bridge/internal/akamai"
	"github.com/edgepurge/akamai-bridge/internal/config"
	"gopkg.in/yaml.v3"
)

// Definition is one agent entry as written in the configuration document.
type Definition struct {
	Name         string   `yaml:"name"`
	TransportURI string   `yaml:"transportUri"`
	Type         string   `yaml:"type"`
	CPCodes      []string `yaml:"cpCodes"`
	Domain       string   `yaml:"domain"`
	Action       string   `yaml:"action"`
	Username     string   `yaml:"username"`
	Password     string   `yaml:"password"`
}

type document struct {
	Agents []Definition `yaml:"agents"`
}

// Agent is a validated purge destination.
type Agent struct {
	Name         string
	TransportURI string
	Type         akamai.Type
	CPCodes      []string
	Domain       akamai.Domain
	Action       akamai.Action
	Credentials  akamai.Credentials
}

// Set is the result of compiling a document: valid agents by name, plus the
// definitions that failed validation and why.
type Set struct {
	agents  map[string]Agent
	invalid map[string]error
}

// Load reads and compiles the agent document at path.
func Load(path string, defaults config.AkamaiConfig) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Set{}, fmt.Errorf("could not read agent configuration: %w", err)
	}

	return Parse(data, defaults)
}

// Parse compiles an agent document. Individual invalid definitions don't
// fail the parse; they are recorded in the returned set.
func Parse(data []byte, defaults config.AkamaiConfig) (Set, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Set{}, fmt.Errorf("could not parse agent configuration: %w", err)
	}

	set := Set{
		agents:  map[string]Agent{},
		invalid: map[string]error{},
	}

	for i, def := range doc.Agents {
		name := def.Name
		if name == "" {
			name = fmt.Sprintf("agent[%d]", i)
			set.invalid[name] = fmt.Errorf("agent definition %d has no name", i)
			continue
		}

		agent, err := compile(def, defaults)
		if err != nil {
			set.invalid[name] = err
			continue
		}

		set.agents[name] = agent
	}

	return set, nil
}

// DefaultSet synthesizes the single "default" agent from environment
// configuration, for deployments that don't use an agent document.
func DefaultSet(defaults config.AkamaiConfig) Set {
	agent, err := compile(Definition{Name: "default"}, defaults)

	set := Set{
		agents:  map[string]Agent{},
		invalid: map[string]error{},
	}
	if err != nil {
		set.invalid["default"] = err
	} else {
		set.agents["default"] = agent
	}

	return set
}

func compile(def Definition, defaults config.AkamaiConfig) (Agent, error) {
	purgeType, err := akamai.ParseType(def.Type)
	if err != nil {
		return Agent{}, err
	}

	domain, err := akamai.ParseDomain(def.Domain)
	if err != nil {
		return Agent{}, err
	}

	action, err := akamai.ParseAction(def.Action)
	if err != nil {
		return Agent{}, err
	}

	if purgeType == akamai.TypeCPCode && len(def.CPCodes) == 0 {
		return Agent{}, fmt.Errorf("agent %q uses cpcode purging but defines no CP codes", def.Name)
	}

	transportURI := def.TransportURI
	if transportURI == "" {
		// fall back to the configured endpoint, addressed by the transport
		// scheme the registry dispatches on.
		transportURI = "akamai://" + strings.TrimPrefix(strings.TrimPrefix(defaults.Endpoint, "https://"), "http://")
	}

	creds := akamai.Credentials{
		Username: def.Username,
		Password: def.Password,
	}
	if creds.Username == "" && creds.Password == "" {
		creds = akamai.Credentials{
			Username: defaults.Username,
			Password: defaults.Password,
		}
	}

	return Agent{
		Name:         def.Name,
		TransportURI: transportURI,
		Type:         purgeType,
		CPCodes:      append([]string(nil), def.CPCodes...),
		Domain:       domain,
		Action:       action,
		Credentials:  creds,
	}, nil
}

// Endpoint translates the agent's transport URI into the URL of the purge
// queue. The "akamai" scheme maps to HTTPS; "akamai+insecure" maps to plain
// HTTP for local development and tests.
func (a Agent) Endpoint() string {
	scheme, rest, found := strings.Cut(a.TransportURI, "://")
	if !found {
		return a.TransportURI
	}
	if strings.ToLower(scheme) == "akamai+insecure" {
		return "http://" + rest
	}
	return "https://" + rest
}

// Scheme returns the transport URI scheme used for handler selection, in
// lower case.
func (a Agent) Scheme() string {
	scheme, _, found := strings.Cut(a.TransportURI, "://")
	if !found {
		return ""
	}
	return strings.ToLower(scheme)
}

// Count returns the number of valid agents in the set.
func (s Set) Count() int {
	return len(s.agents)
}

// InvalidCount returns the number of definitions that failed validation.
func (s Set) InvalidCount() int {
	return len(s.invalid)
}
