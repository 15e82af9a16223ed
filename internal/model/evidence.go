package model

import "time"

// ToolIdentity identifies the tool (and optional AI model) that produced a record.
// It participates in content fingerprints, so the same content captured by a
// different tool version yields a different identifier.
type ToolIdentity struct {
	Name         string `json:"name,omitempty" yaml:"name"`
	Version      string `json:"version,omitempty" yaml:"version"`
	ModelName    string `json:"model_name,omitempty" yaml:"model_name,omitempty"`
	ModelVersion string `json:"model_version,omitempty" yaml:"model_version,omitempty"`
}

// String renders the identity as "name:version" plus "model:version" when set.
func (t ToolIdentity) String() string {
	s := t.Name + ":" + t.Version
	if t.ModelName != "" {
		s += " " + t.ModelName + ":" + t.ModelVersion
	}
	return s
}

// Evidence is an immutable unit of raw or extracted fact. The ID is derived
// from {content, source, tool identity} and never from the timestamp, so
// identical evidentiary content always yields the identical ID regardless of
// when it was captured.
type Evidence struct {
	ID         string            `json:"id"`
	Content    string            `json:"content"`
	Source     string            `json:"source"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Tool       ToolIdentity      `json:"tool"`
	RunID      string            `json:"run_id"`
	Seq        int               `json:"seq"` // insertion order within the ledger
	RecordedAt time.Time         `json:"recorded_at"`
}
