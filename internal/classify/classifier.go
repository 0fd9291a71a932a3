// Package classify assigns each resolved query a type that drives answer
// formatting. Classification is a pure function over an ordered pattern
// table; ordering is significant because several patterns overlap ("our
// experience in healthcare" names both an industry and experience).
package classify

import "regexp"

// QueryType is the closed set of recognized query intents.
type QueryType string

const (
	TypeMethodology        QueryType = "methodology"
	TypeClientExamples     QueryType = "client-examples"
	TypeProjectList        QueryType = "project-list"
	TypeDeliverables       QueryType = "deliverables"
	TypePricing            QueryType = "pricing"
	TypeRisks              QueryType = "risks"
	TypeProposalLanguage   QueryType = "proposal-language"
	TypeIndustryExperience QueryType = "industry-experience"
	TypeOutcomes           QueryType = "outcomes"
	TypeGeographic         QueryType = "geographic"
	TypeGeneral            QueryType = "general"
)

type rule struct {
	queryType QueryType
	re        *regexp.Regexp
}

// ruleTable is evaluated top to bottom; the first match wins. More specific
// intents sit above broader ones: "pricing approach" must classify as pricing
// before the methodology patterns get a look.
var ruleTable = []rule{
	{TypePricing, regexp.MustCompile(`(?i)\b(pricing|price[ds]?|fee[s]?|cost[s]?|budget|rate card|charged?)\b`)},
	{TypeRisks, regexp.MustCompile(`(?i)\b(risk[s]?|mitigation[s]?|assumption[s]?|caveat[s]?|dependenc(y|ies))\b`)},
	{TypeDeliverables, regexp.MustCompile(`(?i)\b(deliverable[s]?|work\s*product[s]?|output[s]?|artifact[s]?|what (do|did) we (deliver|produce))\b`)},
	{TypeProposalLanguage, regexp.MustCompile(`(?i)\b(language|wording|phrasing|boilerplate|how (do|did) we (describe|phrase|word|write))\b`)},
	{TypeOutcomes, regexp.MustCompile(`(?i)\b(outcome[s]?|result[s]?|impact|savings|improvement[s]?|achieved?|success(ful)?)\b`)},
	{TypeGeographic, regexp.MustCompile(`(?i)\b(geograph(y|ic|ies)|region[s]?|international|overseas|country|countries|market[s]? (in|across)|in (europe|asia|latin america|north america))\b`)},
	{TypeMethodology, regexp.MustCompile(`(?i)\b(methodolog(y|ies)|approach(es)?|framework[s]?|process|how (do|did|would) we|work\s*plan|phases?)\b`)},
	{TypeIndustryExperience, regexp.MustCompile(`(?i)\b(experience (in|with)|expertise (in|with)|track record|credentials?|qualifications?|(healthcare|private.equity|industrials?|consumer) (experience|work|clients?))\b`)},
	{TypeClientExamples, regexp.MustCompile(`(?i)\b(example[s]?|similar (client[s]?|work|project[s]?|engagement[s]?)|case stud(y|ies)|(which|what) client[s]?|who (have|has) we)\b`)},
	{TypeProjectList, regexp.MustCompile(`(?i)\b(list (of|all|the)|all (the )?(project[s]?|proposal[s]?|engagement[s]?)|every (project|proposal|engagement)|what (projects?|proposals?|engagements?) (have|did))\b`)},
}

// Classify returns the query's type, or TypeGeneral when no pattern matches.
func Classify(query string) QueryType {
	for _, r := range ruleTable {
		if r.re.MatchString(query) {
			return r.queryType
		}
	}
	return TypeGeneral
}
