// Package catalog is the project-catalog data dependency consumed by the
// tracker handlers. It is injected, not global, so the protocol core stays
// testable with fake data.
package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Project is one business record of the IT department catalog.
type Project struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	WebsiteStatus      string `json:"website_status"`
	DashboardStatus    string `json:"dashboard_status"`
	DeploymentPlatform string `json:"deployment_platform"`
	Cost               string `json:"cost"`
}

// CostDollars parses the monthly cost out of the "$N/mo" display form.
func (p Project) CostDollars() (float64, error) {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(p.Cost, "$"), "/mo")
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("unparsable cost %q for project %s: %w", p.Cost, p.ID, err)
	}
	return v, nil
}

// ErrNotFound reports a missing project id.
type ErrNotFound struct {
	ID string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("project not found: %s", e.ID)
}

// Store provides read access to the catalog. Implementations may block on
// I/O; handlers pass their request context through.
type Store interface {
	// Get returns the project for an id (case-insensitive) or *ErrNotFound.
	Get(ctx context.Context, id string) (*Project, error)

	// List returns every project in stable catalog order.
	List(ctx context.Context) ([]Project, error)
}

// StaticStore is the in-memory Store used by the current deployment; a real
// database can replace it behind the same interface.
type StaticStore struct {
	ordered []Project
	byID    map[string]int
}

// NewStaticStore builds a store preserving the given order.
func NewStaticStore(projects []Project) *StaticStore {
	s := &StaticStore{
		ordered: make([]Project, len(projects)),
		byID:    make(map[string]int, len(projects)),
	}
	copy(s.ordered, projects)
	for i, p := range s.ordered {
		s.byID[strings.ToLower(p.ID)] = i
	}
	return s
}

// Get implements Store.
func (s *StaticStore) Get(_ context.Context, id string) (*Project, error) {
	i, ok := s.byID[strings.ToLower(id)]
	if !ok {
		return nil, &ErrNotFound{ID: id}
	}
	p := s.ordered[i]
	return &p, nil
}

// List implements Store.
func (s *StaticStore) List(_ context.Context) ([]Project, error) {
	out := make([]Project, len(s.ordered))
	copy(out, s.ordered)
	return out, nil
}

// IDs returns the known project ids in catalog order.
func (s *StaticStore) IDs() []string {
	ids := make([]string, len(s.ordered))
	for i, p := range s.ordered {
		ids[i] = p.ID
	}
	return ids
}

// SeedProjects is the current department catalog.
func SeedProjects() []Project {
	return []Project{
		{ID: "jamiat", Name: "Jamiat", WebsiteStatus: "live", DashboardStatus: "live", DeploymentPlatform: "Vercel", Cost: "$20/mo"},
		{ID: "sama", Name: "SAMA", WebsiteStatus: "live", DashboardStatus: "development", DeploymentPlatform: "Vercel", Cost: "$20/mo"},
		{ID: "safe", Name: "SAFE", WebsiteStatus: "live", DashboardStatus: "live", DeploymentPlatform: "Vercel", Cost: "$20/mo"},
		{ID: "next", Name: "NEXT", WebsiteStatus: "live", DashboardStatus: "development", DeploymentPlatform: "Vercel", Cost: "$20/mo"},
		{ID: "hamqadam", Name: "Hamqadam", WebsiteStatus: "live", DashboardStatus: "live", DeploymentPlatform: "Vercel + Sanity", Cost: "$45/mo"},
	}
}
