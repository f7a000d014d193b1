package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario against the event engine.
type Scenario struct {
	// Name uniquely identifies this scenario; also the golden-file key.
	Name string `yaml:"name"`

	// Description explains what behavior this scenario exercises.
	Description string `yaml:"description"`

	// Replicas lists the replica names the scenario uses. Each gets its
	// own temp-directory bones.Repo. Defaults to ["a"] if empty.
	Replicas []string `yaml:"replicas,omitempty"`

	// Steps is the ordered list of operations to perform.
	Steps []Step `yaml:"steps"`

	// Assertions validate the outcome after every step has run.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one scenario action: either an intent appended to a replica,
// or the special "sync_from" op that copies another replica's event log
// into this one before continuing (used to model a partial sync prior to
// a concurrent edit).
type Step struct {
	// Replica names which repo this step runs against. Defaults to the
	// first entry of Scenario.Replicas.
	Replica string `yaml:"replica,omitempty"`

	// Agent is the writing agent for intent ops; ignored for sync_from.
	Agent string `yaml:"agent,omitempty"`

	// Op is the intent type (create_item, update_item, move_item,
	// link_item, unlink_item, assign_item, comment_item, delete_item,
	// redact_comment) or the special "sync_from" op.
	Op string `yaml:"op"`

	// Args carries the op's fields; interpreted per-op by buildIntent.
	Args map[string]any `yaml:"args,omitempty"`

	// ExpectError, if non-empty, asserts the step fails with this Kind
	// (see bones.Kind) rather than succeeding.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Assertion validates the scenario's final outcome.
type Assertion struct {
	// Type is one of AssertItemField, AssertMergedItemField.
	Type string `yaml:"type"`

	// Replica selects which replica's view to read (AssertItemField
	// only). Defaults to the first replica.
	Replica string `yaml:"replica,omitempty"`

	// ItemID names the item under test.
	ItemID string `yaml:"item_id"`

	// Field names the item-state field to compare: title, description,
	// kind, parent, phase, epoch, deleted, labels, assignees,
	// blocked_by, related_to, comment_count, comment_bodies.
	Field string `yaml:"field"`

	// Equals is the expected value. Scalars compare directly; the
	// set-valued fields (labels, assignees, blocked_by, related_to,
	// comment_bodies) compare as an unordered set of strings.
	Equals any `yaml:"equals"`
}

// Assertion type constants.
const (
	AssertItemField       = "item_field"
	AssertMergedItemField = "merged_item_field"
)

// LoadScenario reads and strictly parses a scenario YAML file, rejecting
// unknown fields so a typo'd key fails loudly instead of silently doing
// nothing.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("harness: read scenario file: %w", err)
	}

	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("harness: parse scenario YAML: %w", err)
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("harness: invalid scenario %s: %w", path, err)
	}
	if len(s.Replicas) == 0 {
		s.Replicas = []string{"a"}
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	for i, step := range s.Steps {
		if step.Op == "" {
			return fmt.Errorf("steps[%d]: op is required", i)
		}
	}
	for i, a := range s.Assertions {
		switch a.Type {
		case AssertItemField, AssertMergedItemField:
		case "":
			return fmt.Errorf("assertions[%d]: type is required", i)
		default:
			return fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
		}
		if a.ItemID == "" {
			return fmt.Errorf("assertions[%d]: item_id is required", i)
		}
		if a.Field == "" {
			return fmt.Errorf("assertions[%d]: field is required", i)
		}
	}
	return nil
}
