package api

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/nextstep/internal/profile"
	"github.com/kalambet/nextstep/internal/progress"
	"github.com/kalambet/nextstep/internal/roadmap"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Profile *profile.Store
	Roadmap *roadmap.Service
}

// NewMCPServer creates an MCP server exposing the roadmap and profile to
// assistants.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"nextstep",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("nextstep: career roadmap, skills and progress of the local student."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("get_roadmap",
			mcp.WithDescription("Return every roadmap skill with its completed and unlocked state."),
		),
		mcpGetRoadmap(deps),
	)

	s.AddTool(
		mcp.NewTool("complete_skill",
			mcp.WithDescription("Mark an unlocked roadmap skill as completed and award its XP bonus."),
			mcp.WithString("skill_id", mcp.Description("Skill id from get_roadmap"), mcp.Required()),
		),
		mcpCompleteSkill(deps),
	)

	s.AddTool(
		mcp.NewTool("award_xp",
			mcp.WithDescription("Add experience points to the profile."),
			mcp.WithNumber("amount", mcp.Description("Non-negative whole XP amount"), mcp.Required()),
		),
		mcpAwardXP(deps),
	)

	s.AddTool(
		mcp.NewTool("update_onboarding",
			mcp.WithDescription("Change fields of the onboarding draft."),
			mcp.WithNumber("step", mcp.Description("Wizard step 1-4")),
			mcp.WithString("degree", mcp.Description("Degree, e.g. B.Tech")),
			mcp.WithString("branch", mcp.Description("Branch or major")),
			mcp.WithArray("syllabus_topics", mcp.Description("Syllabus topics (replaces the list)")),
			mcp.WithArray("interests", mcp.Description("Interest categories (replaces the list)")),
			mcp.WithString("career_goal", mcp.Description("Career goal")),
			mcp.WithBoolean("knows_career_goal", mcp.Description("Whether the student knows their goal")),
		),
		mcpUpdateOnboarding(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"user://profile",
			"User Profile",
			mcp.WithResourceDescription("Current user profile as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceProfile(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"user://progress",
			"Progress",
			mcp.WithResourceDescription("XP, level and progress toward the next level"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceProgress(deps),
	)

	return s
}

func mcpGetRoadmap(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcpJSON(deps.Roadmap.View()), nil
	}
}

func mcpCompleteSkill(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("skill_id")
		if err != nil {
			return mcpError("skill_id is required"), nil
		}
		res, err := deps.Roadmap.Complete(id)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to complete skill: %v", err)), nil
		}
		return mcpJSON(res), nil
	}
}

func mcpAwardXP(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if f, ok := req.GetArguments()["amount"].(float64); ok && f != math.Trunc(f) {
			return mcpError("amount must be a whole number"), nil
		}
		amount, err := req.RequireInt("amount")
		if err != nil {
			return mcpError("amount is required"), nil
		}
		if amount < 0 {
			return mcpError("amount must not be negative"), nil
		}
		if _, ok := deps.Profile.Profile(); !ok {
			return mcpError("no profile yet; complete onboarding first"), nil
		}
		if err := deps.Profile.AddXP(amount); err != nil {
			return mcpError(fmt.Sprintf("failed to add xp: %v", err)), nil
		}
		p, _ := deps.Profile.Profile()
		return mcpJSON(progress.Compute(p.XP)), nil
	}
}

func mcpUpdateOnboarding(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		var patch profile.OnboardingPatch
		if _, ok := args["step"]; ok {
			step := req.GetInt("step", 1)
			patch.Step = &step
		}
		if v, ok := args["degree"].(string); ok {
			patch.Degree = &v
		}
		if v, ok := args["branch"].(string); ok {
			patch.Branch = &v
		}
		if _, ok := args["syllabus_topics"]; ok {
			patch.SyllabusTopics = req.GetStringSlice("syllabus_topics", []string{})
		}
		if _, ok := args["interests"]; ok {
			patch.Interests = req.GetStringSlice("interests", []string{})
		}
		if v, ok := args["career_goal"].(string); ok {
			patch.CareerGoal = &v
		}
		if v, ok := args["knows_career_goal"].(bool); ok {
			patch.KnowsCareerGoal = &v
		}

		if err := deps.Profile.UpdateOnboarding(patch); err != nil {
			return mcpError(fmt.Sprintf("failed to update onboarding: %v", err)), nil
		}
		return mcpJSON(deps.Profile.Onboarding()), nil
	}
}

func mcpResourceProfile(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		p, ok := deps.Profile.Profile()
		if !ok {
			return nil, fmt.Errorf("no profile yet")
		}
		return jsonResource(req.Params.URI, p)
	}
}

func mcpResourceProgress(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		p, ok := deps.Profile.Profile()
		if !ok {
			return nil, fmt.Errorf("no profile yet")
		}
		return jsonResource(req.Params.URI, progress.Compute(p.XP))
	}
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}

func mcpJSON(v any) *mcp.CallToolResult {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err))
	}
	return mcpText(string(b))
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
