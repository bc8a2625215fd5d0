package subscription

import (
	"context"
	"fmt"
	"maps"
	"os"

	"gopkg.in/yaml.v3"
)

// CatalogSource loads the plan catalog at startup.
type CatalogSource interface {
	Load(ctx context.Context) (Catalog, error)
}

type inMemSource struct {
	catalog Catalog
}

// NewInMemSource returns a CatalogSource over the given plans. Intended
// for tests and single-binary deployments with compiled-in plans.
func NewInMemSource(plans ...Plan) CatalogSource {
	catalog := make(Catalog, len(plans))
	for _, plan := range plans {
		catalog[plan.Tier] = plan
	}
	return &inMemSource{catalog: catalog}
}

func (s *inMemSource) Load(ctx context.Context) (Catalog, error) {
	if err := s.catalog.Validate(); err != nil {
		return nil, err
	}
	return maps.Clone(s.catalog), nil
}

type yamlFileSource struct {
	path string
}

// NewYAMLFileSource loads plans from a YAML file:
//
//	plans:
//	  - tier: creator
//	    name: Creator
//	    minutes_per_period: 300
//	    price: {amount: 1500, currency: USD}
//	    interval: monthly
//	    price_id: pri_creator_monthly
//	    discounted_price_id: pri_creator_monthly_ref
func NewYAMLFileSource(path string) CatalogSource {
	return &yamlFileSource{path: path}
}

func (s *yamlFileSource) Load(ctx context.Context) (Catalog, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read plan catalog %s: %w", s.path, err)
	}

	var file struct {
		Plans []Plan `yaml:"plans"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse plan catalog %s: %w", s.path, err)
	}

	catalog := make(Catalog, len(file.Plans))
	for _, plan := range file.Plans {
		catalog[plan.Tier] = plan
	}
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return catalog, nil
}
