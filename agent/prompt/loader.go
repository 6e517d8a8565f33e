package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/agent.txt
	agentRaw string

	//go:embed template/pre_guardrail.txt
	preGuardrailRaw string

	//go:embed template/post_guardrail.txt
	postGuardrailRaw string

	//go:embed template/enquiry_analyzer.txt
	enquiryAnalyzerRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Agent           string
	PreGuardrail    string
	PostGuardrail   string
	EnquiryAnalyzer string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
// Safe to call concurrently; the embed is compile-time.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Agent:           strings.TrimSpace(agentRaw),
		PreGuardrail:    strings.TrimSpace(preGuardrailRaw),
		PostGuardrail:   strings.TrimSpace(postGuardrailRaw),
		EnquiryAnalyzer: strings.TrimSpace(enquiryAnalyzerRaw),
	}
}
