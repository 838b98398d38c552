package domain

// StageDefinition is one row of the static default-workflow table.
type StageDefinition struct {
	ID              string
	Name            string
	Description     string
	ExpectedOutputs []ExpectedOutput
}

var defaultStageCatalog = []StageDefinition{
	{
		ID:          "requirement",
		Name:        "Requirement Analysis",
		Description: "Clarify the idea into goals, users and scoped requirements.",
		ExpectedOutputs: []ExpectedOutput{
			{
				Type: "prd",
				Name: "Product Requirements Document",
				PromptTemplates: []string{
					"Write a product requirements document for: {{idea}}",
				},
			},
			{
				Type: "user_stories",
				Name: "User Stories",
				PromptTemplates: []string{
					"List the core user stories with acceptance criteria for: {{idea}}",
				},
			},
			{Type: "business_plan", Name: "Business Plan"},
		},
	},
	{
		ID:          "design",
		Name:        "Solution Design",
		Description: "Shape the architecture, data model and user experience.",
		ExpectedOutputs: []ExpectedOutput{
			{
				Type: "architecture",
				Name: "Architecture Design",
				PromptTemplates: []string{
					"Propose a system architecture for the requirements in {{prd}}",
				},
			},
			{Type: "ui_design", Name: "UI Design"},
			{Type: "database_schema", Name: "Database Schema"},
		},
	},
	{
		ID:          "development",
		Name:        "Development",
		Description: "Build the product against the agreed design.",
		ExpectedOutputs: []ExpectedOutput{
			{
				Type: "code",
				Name: "Source Code",
				PromptTemplates: []string{
					"Implement the module described in {{architecture}}",
				},
			},
			{Type: "api_docs", Name: "API Documentation"},
		},
	},
	{
		ID:          "testing",
		Name:        "Testing & QA",
		Description: "Verify the build against requirements and fix defects.",
		ExpectedOutputs: []ExpectedOutput{
			{
				Type: "test_plan",
				Name: "Test Plan",
				PromptTemplates: []string{
					"Derive a test plan from the user stories in {{user_stories}}",
				},
			},
			{Type: "test_report", Name: "Test Report"},
		},
	},
	{
		ID:          "deployment",
		Name:        "Deployment & Launch",
		Description: "Ship to production and prepare operations.",
		ExpectedOutputs: []ExpectedOutput{
			{Type: "deployment_guide", Name: "Deployment Guide"},
			{Type: "release_notes", Name: "Release Notes"},
		},
	},
}

// DefaultStageCatalog returns a copy of the canonical stage table, in order.
func DefaultStageCatalog() []StageDefinition {
	out := make([]StageDefinition, len(defaultStageCatalog))
	for i, def := range defaultStageCatalog {
		outputs := make([]ExpectedOutput, len(def.ExpectedOutputs))
		for j, o := range def.ExpectedOutputs {
			o.PromptTemplates = append([]string(nil), o.PromptTemplates...)
			outputs[j] = o
		}
		def.ExpectedOutputs = outputs
		out[i] = def
	}
	return out
}
