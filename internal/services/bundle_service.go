package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"stackhub/internal/models"
)

// BundleService serves curated bundle presets and validates selections
// for port collisions before export.
type BundleService struct {
	items   *ItemService
	bundles []models.Bundle
}

// NewBundleService creates a new bundle service
func NewBundleService(items *ItemService) *BundleService {
	return &BundleService{items: items}
}

// LoadFromFile reads curated presets from a YAML file:
//
//	bundles:
//	  - id: harden-basic
//	    name: "Harden: Basic Server"
//	    description: Fail2ban + Docker core
//	    item_ids: [fail2ban, docker-core]
func (s *BundleService) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read bundles file: %w", err)
	}

	var doc struct {
		Bundles []models.Bundle `yaml:"bundles"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse bundles file: %w", err)
	}

	for _, b := range doc.Bundles {
		if b.ID == "" || len(b.ItemIDs) == 0 {
			return fmt.Errorf("%w: bundle needs an id and at least one item id", models.ErrValidation)
		}
	}

	s.bundles = doc.Bundles
	log.Printf("📚 [BUNDLES] Loaded %d curated bundles from %s", len(doc.Bundles), path)
	return nil
}

// List returns the curated presets.
func (s *BundleService) List() []models.Bundle {
	if s.bundles == nil {
		return []models.Bundle{}
	}
	return s.bundles
}

// ValidatePorts resolves a selection and reports every port claimed by
// more than one item. Conflicts are ordered by port number.
func (s *BundleService) ValidatePorts(ctx context.Context, ids []string) ([]models.PortConflict, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no item ids selected", models.ErrValidation)
	}

	items, err := s.items.Resolve(ctx, ids)
	if err != nil {
		return nil, err
	}

	claimants := make(map[int][]string)
	for _, item := range items {
		for _, port := range item.Ports {
			claimants[port] = append(claimants[port], item.Name)
		}
	}

	var conflicts []models.PortConflict
	for port, names := range claimants {
		if len(names) > 1 {
			conflicts = append(conflicts, models.PortConflict{Port: port, Items: names})
		}
	}
	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].Port < conflicts[j].Port })
	return conflicts, nil
}
