package models

import (
	"fmt"
	"strings"
)

// Item represents a catalog entry: a reusable automation/config unit
// (install script, hardening step, service stack, ...).
type Item struct {
	ID              string            `json:"id"`   // stable, caller-assigned, immutable once created
	Name            string            `json:"name"` // display name, used in export block markers
	Category        string            `json:"category"`
	Description     string            `json:"description"`
	Tags            []string          `json:"tags"`
	Ports           []int             `json:"ports,omitempty"` // TCP/UDP ports the unit exposes
	ScriptPrimary   string            `json:"script_primary"`  // bash rendering of the procedure
	ScriptAlternate string            `json:"script_alternate"`
	ExtraArtifacts  map[string]string `json:"extra_artifacts,omitempty"` // named auxiliary blobs (terraform, pulumi, ...)
}

// Validate checks the required fields at the store boundary.
// Re-submission with an existing id is an upsert, so only shape is checked here.
func (i *Item) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return fmt.Errorf("%w: item id is required", ErrValidation)
	}
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("%w: item name is required", ErrValidation)
	}
	if i.ScriptPrimary == "" {
		return fmt.Errorf("%w: script_primary is required", ErrValidation)
	}
	return nil
}

// Equal reports whether two items carry identical persisted fields.
// Used to make upsert idempotent (no re-index on a no-op write).
func (i *Item) Equal(other *Item) bool {
	if other == nil {
		return false
	}
	if i.ID != other.ID || i.Name != other.Name || i.Category != other.Category ||
		i.Description != other.Description || i.ScriptPrimary != other.ScriptPrimary ||
		i.ScriptAlternate != other.ScriptAlternate {
		return false
	}
	if strings.Join(i.Tags, ",") != strings.Join(other.Tags, ",") {
		return false
	}
	if len(i.Ports) != len(other.Ports) {
		return false
	}
	for idx := range i.Ports {
		if i.Ports[idx] != other.Ports[idx] {
			return false
		}
	}
	if len(i.ExtraArtifacts) != len(other.ExtraArtifacts) {
		return false
	}
	for k, v := range i.ExtraArtifacts {
		if other.ExtraArtifacts[k] != v {
			return false
		}
	}
	return true
}

// IndexJob is a denormalized snapshot of an item's searchable fields,
// queued for the indexing pipeline. It carries copies, not a pointer to
// the mutable row, so later edits never alter an in-flight job.
type IndexJob struct {
	JobID       string `json:"job_id"`
	ItemID      string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Tags        string `json:"tags"` // comma-joined
	Description string `json:"description"`
	Script      string `json:"script"`
	Attempts    int    `json:"attempts"`
}

// SearchableText concatenates the fields fed to the embedding model.
func (j *IndexJob) SearchableText() string {
	return strings.Join([]string{j.Name, j.Category, j.Tags, j.Description, j.Script}, "\n")
}

// NewIndexJob snapshots an item's searchable fields.
func NewIndexJob(jobID string, item *Item) *IndexJob {
	return &IndexJob{
		JobID:       jobID,
		ItemID:      item.ID,
		Name:        item.Name,
		Category:    item.Category,
		Tags:        strings.Join(item.Tags, ","),
		Description: item.Description,
		Script:      item.ScriptPrimary,
	}
}

// Bundle is a curated preset: a named selection of item ids.
type Bundle struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	ItemIDs     []string `json:"item_ids" yaml:"item_ids"`
}

// PortConflict reports one port claimed by more than one selected item.
type PortConflict struct {
	Port  int      `json:"port"`
	Items []string `json:"items"` // item names, in selection order
}
