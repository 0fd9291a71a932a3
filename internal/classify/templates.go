package classify

// Template is the answer-formatting contract for one query type: a system
// prompt variant for the synthesizer and guidance on how the answer should be
// shaped.
type Template struct {
	SystemPrompt string
	Format       string
}

const baseSynthPrompt = `You answer questions about a consulting firm's past proposals using only the supplied passages.
Cite the source filename after each claim. If the passages don't contain the answer, say so.`

var templates = map[QueryType]Template{
	TypeMethodology: {
		SystemPrompt: baseSynthPrompt + "\nDescribe the approach step by step, preserving phase names and sequencing from the passages.",
		Format:       "numbered phases",
	},
	TypeClientExamples: {
		SystemPrompt: baseSynthPrompt + "\nAnswer with concrete client engagements: client, what was done, and when.",
		Format:       "per-client bullets",
	},
	TypeProjectList: {
		SystemPrompt: baseSynthPrompt + "\nAnswer with a flat list of engagements, one line each, no elaboration.",
		Format:       "flat list",
	},
	TypeDeliverables: {
		SystemPrompt: baseSynthPrompt + "\nEnumerate the concrete deliverables and work products named in the passages.",
		Format:       "bulleted deliverables",
	},
	TypePricing: {
		SystemPrompt: baseSynthPrompt + "\nReport fees, rates, and pricing structures exactly as stated; never estimate numbers not present.",
		Format:       "figures with sources",
	},
	TypeRisks: {
		SystemPrompt: baseSynthPrompt + "\nList the risks, assumptions, and mitigations the passages identify.",
		Format:       "risk/mitigation pairs",
	},
	TypeProposalLanguage: {
		SystemPrompt: baseSynthPrompt + "\nQuote the relevant proposal language verbatim, attributed to its document.",
		Format:       "verbatim quotes",
	},
	TypeIndustryExperience: {
		SystemPrompt: baseSynthPrompt + "\nSummarize the firm's experience in the asked industry: engagements, clients, and depth.",
		Format:       "experience summary",
	},
	TypeOutcomes: {
		SystemPrompt: baseSynthPrompt + "\nLead with measurable results and outcomes; include the engagement each came from.",
		Format:       "outcomes with figures",
	},
	TypeGeographic: {
		SystemPrompt: baseSynthPrompt + "\nOrganize the answer by geography or market.",
		Format:       "by region",
	},
	TypeGeneral: {
		SystemPrompt: baseSynthPrompt,
		Format:       "prose",
	},
}

// TemplateFor returns the template for a query type, falling back to the
// general template for unknown types.
func TemplateFor(queryType QueryType) Template {
	if t, ok := templates[queryType]; ok {
		return t
	}
	return templates[TypeGeneral]
}
