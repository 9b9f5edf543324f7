package tools

import "github.com/joao-fontenele/orderflow-insights/internal/analytics"

const (
	ToolAskBusinessQuestion    = "ask_business_question"
	ToolGetKPIs                = "get_kpis"
	ToolGenerateBusinessReport = "generate_business_report"
	ToolFindInsights           = "find_insights"
	ToolGetSalesAnalytics      = "get_sales_analytics"
	ToolGetCustomerInsights    = "get_customer_insights"
	ToolGetInventoryAlerts     = "get_inventory_alerts"
	ToolExecuteQuery           = "execute_query"
	ToolGetTableSchema         = "get_table_schema"
	ToolGetDatabaseStats       = "get_database_stats"
)

var periods = []string{"week", "month", "quarter"}

// Definition describes a tool and the JSON schema of its arguments.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringProperty(description string, enum ...string) map[string]any {
	prop := map[string]any{"type": "string", "description": description}
	if len(enum) > 0 {
		prop["enum"] = enum
	}
	return prop
}

func enumValues[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

// Definitions lists every tool the dispatcher handles.
func Definitions() []Definition {
	return []Definition{
		{
			Name:        ToolExecuteQuery,
			Description: "Run a read-only SQL SELECT query",
			InputSchema: objectSchema(map[string]any{
				"query": stringProperty("SQL SELECT statement to run"),
			}, "query"),
		},
		{
			Name:        ToolGetTableSchema,
			Description: "Describe the columns of a table",
			InputSchema: objectSchema(map[string]any{
				"table_name": stringProperty("Name of the table"),
			}, "table_name"),
		},
		{
			Name:        ToolGetDatabaseStats,
			Description: "Count the rows of every table",
			InputSchema: objectSchema(map[string]any{}),
		},
		{
			Name:        ToolAskBusinessQuestion,
			Description: "Answer a business question asked in natural language",
			InputSchema: objectSchema(map[string]any{
				"question": stringProperty("Business question, e.g. \"who are my best customers?\""),
			}, "question"),
		},
		{
			Name:        ToolGetKPIs,
			Description: "Key performance indicators of the business",
			InputSchema: objectSchema(map[string]any{}),
		},
		{
			Name:        ToolGenerateBusinessReport,
			Description: "Generate a sales, customers or products report",
			InputSchema: objectSchema(map[string]any{
				"report_type": stringProperty("Kind of report", enumValues(analytics.ReportTypes)...),
				"period":      stringProperty("Label for the report period", periods...),
			}, "report_type"),
		},
		{
			Name:        ToolFindInsights,
			Description: "Find notable facts in the data without a specific question",
			InputSchema: objectSchema(map[string]any{
				"focus_area": stringProperty("Area to analyze", enumValues(analytics.FocusAreas)...),
			}),
		},
		{
			Name:        ToolGetSalesAnalytics,
			Description: "Completed sales summary and revenue by category",
			InputSchema: objectSchema(map[string]any{
				"period": stringProperty("Label for the analysis period", periods...),
			}),
		},
		{
			Name:        ToolGetCustomerInsights,
			Description: "Most valuable customers and their distribution by country",
			InputSchema: objectSchema(map[string]any{}),
		},
		{
			Name:        ToolGetInventoryAlerts,
			Description: "Products low on stock and products that never sold",
			InputSchema: objectSchema(map[string]any{}),
		},
	}
}
