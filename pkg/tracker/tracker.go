// Package tracker registers the Jamiat IT department tools, resources, and
// prompts against a registry. All data access goes through catalog.Store.
package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jamiat-it/tracker-mcp/pkg/catalog"
	"github.com/jamiat-it/tracker-mcp/pkg/protocol"
	"github.com/jamiat-it/tracker-mcp/pkg/registry"
)

// ProjectsResourceURI identifies the full-catalog resource.
const ProjectsResourceURI = "tracker://projects/all"

// GetProjectArgs selects a single project.
type GetProjectArgs struct {
	ProjectID string `json:"project_id" jsonschema:"description=Project identifier such as jamiat or sama"`
}

// SearchByStatusArgs filters projects by website and/or dashboard status.
// Both filters are optional; an omitted filter matches every project.
type SearchByStatusArgs struct {
	WebsiteStatus   string `json:"website_status,omitempty" jsonschema:"description=Website status to match (live or development)"`
	DashboardStatus string `json:"dashboard_status,omitempty" jsonschema:"description=Dashboard status to match (live or development)"`
}

// Register wires every tracker descriptor into reg. Call once at startup.
func Register(reg *registry.Registry, store catalog.Store) error {
	descriptors := []registry.Descriptor{
		registry.NewTool("get_project",
			"Get the current status and details of a project by its ID. Available project IDs: jamiat, sama, safe, next, hamqadam.",
			getProject(store)),
		registry.NewTool("list_projects",
			"List all projects in the Jamiat IT Department with their current status.",
			listProjects(store)),
		registry.NewTool("get_total_cost",
			"Calculate the total monthly hosting cost across all projects.",
			getTotalCost(store)),
		registry.NewTool("search_by_status",
			"Find all projects with a specific website and/or dashboard status. Valid statuses: live, development. You can filter by website_status, dashboard_status, or both.",
			searchByStatus(store)),
		registry.NewResource(ProjectsResourceURI,
			"All Projects",
			"Complete project database as JSON.",
			"application/json",
			allProjects(store)),
		registry.NewPrompt("monthly_report",
			"Generate a monthly IT department status report.",
			monthlyReport(store)),
	}
	for _, d := range descriptors {
		if err := reg.Register(d); err != nil {
			return err
		}
	}
	return nil
}

func getProject(store catalog.Store) func(context.Context, GetProjectArgs) (any, error) {
	return func(ctx context.Context, args GetProjectArgs) (any, error) {
		project, err := store.Get(ctx, args.ProjectID)
		if err != nil {
			var nf *catalog.ErrNotFound
			if errors.As(err, &nf) {
				ids, lerr := projectIDs(ctx, store)
				if lerr != nil {
					return nil, lerr
				}
				return fmt.Sprintf("Project %q not found. Available: %s", args.ProjectID, strings.Join(ids, ", ")), nil
			}
			return nil, err
		}
		data, err := json.MarshalIndent(project, "", "  ")
		if err != nil {
			return nil, err
		}
		return string(data), nil
	}
}

func listProjects(store catalog.Store) func(context.Context, struct{}) (any, error) {
	return func(ctx context.Context, _ struct{}) (any, error) {
		projects, err := store.List(ctx)
		if err != nil {
			return nil, err
		}
		lines := make([]string, 0, len(projects))
		for _, p := range projects {
			lines = append(lines, fmt.Sprintf("• %s (%s) - %s - %s - %s - %s",
				p.Name, p.ID, p.WebsiteStatus, p.DashboardStatus, p.DeploymentPlatform, p.Cost))
		}
		return strings.Join(lines, "\n"), nil
	}
}

func getTotalCost(store catalog.Store) func(context.Context, struct{}) (any, error) {
	return func(ctx context.Context, _ struct{}) (any, error) {
		projects, err := store.List(ctx)
		if err != nil {
			return nil, err
		}
		var total float64
		lines := make([]string, 0, len(projects))
		for _, p := range projects {
			cost, err := p.CostDollars()
			if err != nil {
				return nil, err
			}
			total += cost
			lines = append(lines, fmt.Sprintf("  %s: %s", p.Name, p.Cost))
		}
		var b strings.Builder
		b.WriteString("Monthly Hosting Breakdown:\n")
		b.WriteString(strings.Join(lines, "\n"))
		fmt.Fprintf(&b, "\n\nTotal: $%g/mo", total)
		return b.String(), nil
	}
}

func searchByStatus(store catalog.Store) func(context.Context, SearchByStatusArgs) (any, error) {
	return func(ctx context.Context, args SearchByStatusArgs) (any, error) {
		projects, err := store.List(ctx)
		if err != nil {
			return nil, err
		}
		matches := map[string]catalog.Project{}
		for _, p := range projects {
			websiteOK := args.WebsiteStatus == "" || strings.EqualFold(p.WebsiteStatus, args.WebsiteStatus)
			dashboardOK := args.DashboardStatus == "" || strings.EqualFold(p.DashboardStatus, args.DashboardStatus)
			if websiteOK && dashboardOK {
				matches[p.ID] = p
			}
		}
		if len(matches) == 0 {
			return fmt.Sprintf("No projects found with website_status=%q, dashboard_status=%q",
				args.WebsiteStatus, args.DashboardStatus), nil
		}
		data, err := json.MarshalIndent(matches, "", "  ")
		if err != nil {
			return nil, err
		}
		return string(data), nil
	}
}

func allProjects(store catalog.Store) func(context.Context) (any, error) {
	return func(ctx context.Context) (any, error) {
		text, err := catalogJSON(ctx, store)
		if err != nil {
			return nil, err
		}
		return protocol.ReadResourceResult{
			Contents: []protocol.ResourceContents{{
				URI:      ProjectsResourceURI,
				MimeType: "application/json",
				Text:     text,
			}},
		}, nil
	}
}

func monthlyReport(store catalog.Store) func(context.Context, struct{}) (any, error) {
	return func(ctx context.Context, _ struct{}) (any, error) {
		data, err := catalogJSON(ctx, store)
		if err != nil {
			return nil, err
		}
		text := fmt.Sprintf(`You are the IT Department Manager at Jamiat.
Generate a professional monthly status report based on this project data:
%s

Include: Executive summary, per-project updates, hosting costs, and next month's priorities.
Keep it concise and professional.`, data)
		return protocol.GetPromptResult{
			Description: "Monthly IT department status report",
			Messages: []protocol.PromptMessage{{
				Role:    "user",
				Content: protocol.PromptContent{Type: "text", Text: text},
			}},
		}, nil
	}
}

// catalogJSON renders the whole catalog keyed by project id.
func catalogJSON(ctx context.Context, store catalog.Store) (string, error) {
	projects, err := store.List(ctx)
	if err != nil {
		return "", err
	}
	byID := make(map[string]catalog.Project, len(projects))
	for _, p := range projects {
		byID[p.ID] = p
	}
	data, err := json.MarshalIndent(byID, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func projectIDs(ctx context.Context, store catalog.Store) ([]string, error) {
	projects, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
	}
	return ids, nil
}
