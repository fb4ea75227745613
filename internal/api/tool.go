package api

// Tool identifies the writing tool a request originates from.
type Tool string

const (
	ToolNone          Tool = ""
	ToolWizard        Tool = "WIZARD"
	ToolCapstone      Tool = "CAPSTONE_GEN"
	ToolThesis        Tool = "THESIS_GEN"
	ToolResearchTitle Tool = "RESEARCH_TITLE"
	ToolAbstract      Tool = "ABSTRACT_GEN"
	ToolOutline       Tool = "OUTLINE_GEN"
	ToolRewriter      Tool = "REWRITER"
	ToolExtender      Tool = "EXTENDER"
	ToolChecker       Tool = "CHECKER"
	ToolShortener     Tool = "SHORTENER"
	ToolHook          Tool = "HOOK_GEN"
	ToolConclusion    Tool = "CONCLUSION_GEN"
	ToolScholarChat   Tool = "SCHOLAR_CHAT"
)

var tools = map[Tool]bool{
	ToolNone:          true,
	ToolWizard:        true,
	ToolCapstone:      true,
	ToolThesis:        true,
	ToolResearchTitle: true,
	ToolAbstract:      true,
	ToolOutline:       true,
	ToolRewriter:      true,
	ToolExtender:      true,
	ToolChecker:       true,
	ToolShortener:     true,
	ToolHook:          true,
	ToolConclusion:    true,
	ToolScholarChat:   true,
}

func (t Tool) Valid() bool {
	return tools[t]
}

// IsRefine reports whether the tool transforms existing text
// rather than writing from a topic.
func (t Tool) IsRefine() bool {
	switch t {
	case ToolRewriter, ToolExtender, ToolChecker, ToolShortener:
		return true
	default:
		return false
	}
}

func (t Tool) AttachesCitations() bool {
	return t == ToolScholarChat
}
