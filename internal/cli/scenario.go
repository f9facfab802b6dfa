package cli

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/eshaffer321/taskalloc/internal/domain/allocator"
	"github.com/eshaffer321/taskalloc/internal/infrastructure/config"
)

var (
	// ErrUnknownStep is returned for a scenario step whose op is not recognized
	ErrUnknownStep = errors.New("unknown scenario step")

	// ErrInvalidScenario is returned when a scenario resolves to inputs the engine or store cannot accept
	ErrInvalidScenario = errors.New("invalid scenario")
)

// Scenario is a scripted allocation session loaded from YAML
type Scenario struct {
	Name         string                     `yaml:"name"`
	BaseCapacity *int                       `yaml:"base_capacity"`
	Policy       string                     `yaml:"policy"`
	Chunk        int                        `yaml:"chunk"`
	Participants []config.ParticipantConfig `yaml:"participants"`
	Steps        []Step                     `yaml:"steps"`
}

// Step is one edit applied to the session.
//
// Supported ops: policy, set, fill, action, percent, lock, unlock, pool,
// apply, chunk, submit. Value is kept as raw text so quantity and percent
// fields go through the same parsing as interactive input.
type Step struct {
	Op     string `yaml:"op"`
	Index  int    `yaml:"index"`
	Value  string `yaml:"value"`
	Action string `yaml:"action"`
}

func (s Step) String() string {
	switch s.Op {
	case "apply", "submit":
		return s.Op
	case "pool", "chunk", "policy":
		return fmt.Sprintf("%s %s", s.Op, s.Value)
	case "action":
		return fmt.Sprintf("action #%d %s", s.Index, s.Action)
	case "lock", "unlock", "fill":
		return fmt.Sprintf("%s #%d", s.Op, s.Index)
	}
	return fmt.Sprintf("%s #%d %s", s.Op, s.Index, s.Value)
}

// LoadScenario reads a scenario file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario file: %w", err)
	}
	return &sc, nil
}

// Resolve fills unset scenario fields from cfg and returns the session inputs
func (sc *Scenario) Resolve(cfg *config.Config) (capacity int, participants []allocator.Participant, policy allocator.Policy, chunk int, err error) {
	capacity = cfg.Engine.BaseCapacity
	if sc.BaseCapacity != nil {
		capacity = *sc.BaseCapacity
	}

	if len(sc.Participants) == 0 {
		participants = cfg.EngineParticipants()
	} else {
		for _, p := range sc.Participants {
			participants = append(participants, allocator.Participant{ID: p.ID, Name: p.Name, CurrentLoad: p.CurrentLoad})
		}
	}

	if sc.Policy == "" {
		policy, err = cfg.Engine.Policy()
	} else {
		policy, err = allocator.ParsePolicy(sc.Policy)
	}
	if err != nil {
		return 0, nil, 0, 0, err
	}

	chunk = cfg.Engine.DefaultChunk
	if sc.Chunk > 0 {
		chunk = sc.Chunk
	}

	if err := validateInputs(capacity, participants); err != nil {
		return 0, nil, 0, 0, err
	}
	return capacity, participants, policy, chunk, nil
}

// validateInputs rejects inputs the store could not keep in step with the
// session: negative figures and participants sharing an id
func validateInputs(capacity int, participants []allocator.Participant) error {
	var errs []error
	if capacity < 0 {
		errs = append(errs, fmt.Errorf("base_capacity must be >= 0, got %d", capacity))
	}
	seen := make(map[int]bool, len(participants))
	for _, p := range participants {
		if seen[p.ID] {
			errs = append(errs, fmt.Errorf("participant id %d is duplicated", p.ID))
		}
		seen[p.ID] = true
		if p.CurrentLoad < 0 {
			errs = append(errs, fmt.Errorf("participant %d has negative current_load %d", p.ID, p.CurrentLoad))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	return nil
}
