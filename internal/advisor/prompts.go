package advisor

import (
	"fmt"
	"strings"
)

// agentPersona pairs a system prompt with the task template it answers.
// Each advisory endpoint maps to one persona.
type agentPersona struct {
	role   string
	system string
}

var (
	dataEntryAssistant = agentPersona{
		role: "Data Entry Assistant",
		system: "You are a carbon accounting expert who ensures that user-entered data " +
			"is properly categorized under Scope 1, 2, or 3 emissions. You validate " +
			"entries and help maintain accuracy across all emission types.",
	}
	reportGenerator = agentPersona{
		role: "Report Summary Generator",
		system: "You are a sustainability analyst skilled in transforming raw emissions " +
			"data into executive summaries, highlighting key emission sources, " +
			"trends, and actionable insights for reporting.",
	}
	offsetAdvisor = agentPersona{
		role: "Carbon Offset Advisor",
		system: "You are an expert in global carbon offset programs who advises " +
			"organizations on verified offset projects that match their industry, " +
			"values, and geography. You guide them toward credible and effective offsets.",
	}
	regulationRadar = agentPersona{
		role: "Regulation Radar",
		system: "You are a regulatory specialist tracking frameworks like the EU CBAM, " +
			"Japan GX League, and Indonesia ETS/ETP. You help companies understand " +
			"carbon compliance and prepare for upcoming policy shifts.",
	}
	emissionOptimizer = agentPersona{
		role: "Emission Optimizer",
		system: "You are a carbon reduction strategist who reviews historical emissions " +
			"to find cost-effective, practical reduction opportunities for organizations.",
	}
)

func dataEntryPrompt(description string) string {
	return fmt.Sprintf("Analyze and classify the following emission data: %s\n"+
		"- Determine if it falls under Scope 1, 2, or 3.\n"+
		"- Suggest the most appropriate category.\n"+
		"- Recommend an emission factor if available.\n"+
		"- Validate the data completeness and consistency.", description)
}

func reportSummaryPrompt(emissionsData string) string {
	return fmt.Sprintf("Generate an analytical summary of emissions data: %s\n"+
		"- Highlight emission trends and key contributors.\n"+
		"- Compare across time periods if applicable.\n"+
		"- Suggest improvement areas.", emissionsData)
}

func offsetAdvicePrompt(totalKg float64, location, industry string) string {
	return fmt.Sprintf("Recommend suitable carbon offset options for:\n"+
		"- Emissions: %.2f kgCO2e\n"+
		"- Location: %s\n"+
		"- Industry: %s\n"+
		"Provide verified options with cost, benefits, and project type.",
		totalKg, location, industry)
}

func regulationCheckPrompt(location, industry string, exportMarkets []string) string {
	return fmt.Sprintf("Assess regulatory compliance for:\n"+
		"- Location: %s\n"+
		"- Industry: %s\n"+
		"- Export markets: %s\n"+
		"Identify active and upcoming carbon regulations, and suggest preparation steps.",
		location, industry, strings.Join(exportMarkets, ", "))
}

func optimizationPrompt(emissionsData string) string {
	return fmt.Sprintf("Analyze emissions data: %s\n"+
		"- Identify top 3-5 emission sources for potential reduction.\n"+
		"- Suggest practical reduction strategies and estimated savings.", emissionsData)
}
