/*
roster.go - agent roster loading

PURPOSE:
  Deployments that want every known agent to have a profile row before first
  login ship a roster file exported from the identity provider. The startup
  maintenance pass feeds the parsed roster to the store's agent sync, which
  creates missing profile rows and never touches existing ones.

ROSTER FORMAT (YAML):
  agents:
    - id: agent-1
      name: Ana Reyes
      email: ana@example.com
      avatar_url: https://...

SEE ALSO:
  - store/sqlite: SyncAgents
  - cmd/server/main.go: the startup maintenance pass
*/
package identity

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/warp/commission-engine/commission"
)

type rosterFile struct {
	Agents []rosterRecord `yaml:"agents"`
}

type rosterRecord struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Email     string `yaml:"email"`
	AvatarURL string `yaml:"avatar_url"`
}

// ParseRoster parses a YAML roster export into agents. Every record needs an
// id; a roster with any invalid record is rejected whole.
func ParseRoster(data []byte) ([]Agent, error) {
	var file rosterFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("identity: parse roster: %w", err)
	}

	agents := make([]Agent, 0, len(file.Agents))
	var problems []string
	for i, r := range file.Agents {
		if r.ID == "" {
			problems = append(problems, fmt.Sprintf("roster entry %d (%s) is missing an id", i+1, r.Name))
			continue
		}
		agents = append(agents, Agent{
			ID:        r.ID,
			Name:      r.Name,
			Email:     r.Email,
			AvatarURL: r.AvatarURL,
		})
	}
	if len(problems) > 0 {
		return nil, &commission.ValidationError{Problems: problems}
	}
	return agents, nil
}
