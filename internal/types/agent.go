// Package types provides type definitions for structured data used throughout the placement-prep system.
package types

import (
	"fmt"
)

// AgentKind identifies one of the preparation agents.
type AgentKind string

// Agent kinds in declaration order. The order is significant: the result table
// is indexed by it and the readiness scorer walks it.
const (
	AgentCompanyResearch    AgentKind = "COMPANY_RESEARCH"
	AgentResumeOptimization AgentKind = "RESUME_OPTIMIZATION"
	AgentRecruitmentProcess AgentKind = "RECRUITMENT_PROCESS"
	AgentPreviousQuestions  AgentKind = "PREVIOUS_QUESTIONS"
	AgentHRAnswers          AgentKind = "HR_ANSWER_GENERATION"
	AgentMockInterviewer    AgentKind = "MOCK_INTERVIEWER"
)

// NumAgentKinds is the size of the closed AgentKind enumeration.
const NumAgentKinds = 6

// MockReadyContent is the sentinel content of the mock interviewer entry once an
// analysis has started. The interviewer is interactive and never called remotely.
const MockReadyContent = "Ready to start"

// mockInitialContent is the mock interviewer content before any analysis.
const mockInitialContent = "Ready"

var allAgentKinds = [NumAgentKinds]AgentKind{
	AgentCompanyResearch,
	AgentResumeOptimization,
	AgentRecruitmentProcess,
	AgentPreviousQuestions,
	AgentHRAnswers,
	AgentMockInterviewer,
}

// AllAgentKinds returns every agent kind in declaration order.
func AllAgentKinds() []AgentKind {
	kinds := allAgentKinds
	return kinds[:]
}

// ParseAgentKind converts a string to an AgentKind, rejecting unknown values.
func ParseAgentKind(s string) (AgentKind, error) {
	k := AgentKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown agent kind: %q", s)
	}
	return k, nil
}

// Valid reports whether k is one of the six known kinds.
func (k AgentKind) Valid() bool {
	return k.Index() >= 0
}

// Index returns the position of k in declaration order, or -1 if unknown.
func (k AgentKind) Index() int {
	for i, kind := range allAgentKinds {
		if kind == k {
			return i
		}
	}
	return -1
}

// Interactive reports whether the kind is driven by a chat rather than a one-shot call.
func (k AgentKind) Interactive() bool {
	return k == AgentMockInterviewer
}

// UsesSearch reports whether the agent grounds its answer in web search results.
func (k AgentKind) UsesSearch() bool {
	switch k {
	case AgentCompanyResearch, AgentRecruitmentProcess, AgentPreviousQuestions:
		return true
	default:
		return false
	}
}

// AgentMeta holds display metadata for an agent kind.
type AgentMeta struct {
	Kind        AgentKind `json:"kind"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
}

// displayOrder is the order agents are listed in navigation and in exported reports.
var displayOrder = []AgentMeta{
	{Kind: AgentCompanyResearch, Title: "Company Research", Description: "Culture, values, and tech stack"},
	{Kind: AgentRecruitmentProcess, Title: "Recruitment Process", Description: "Rounds, pattern, and evaluation"},
	{Kind: AgentPreviousQuestions, Title: "Previous Questions", Description: "OA, Technical, and HR questions"},
	{Kind: AgentResumeOptimization, Title: "Resume Optimizer", Description: "ATS analysis and improvements"},
	{Kind: AgentHRAnswers, Title: "HR Answer Generator", Description: "Tailored answers for HR rounds"},
	{Kind: AgentMockInterviewer, Title: "Mock Interviewer", Description: "Live practice with AI coach"},
}

// DisplayOrder returns agent metadata in presentation order.
func DisplayOrder() []AgentMeta {
	out := make([]AgentMeta, len(displayOrder))
	copy(out, displayOrder)
	return out
}

// Meta returns the display metadata for k.
func (k AgentKind) Meta() AgentMeta {
	for _, m := range displayOrder {
		if m.Kind == k {
			return m
		}
	}
	return AgentMeta{Kind: k, Title: string(k)}
}

// GroundingSource is a web page an agent's answer was grounded on.
type GroundingSource struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// AgentResult is the current state of one agent in the result table.
type AgentResult struct {
	Kind            AgentKind         `json:"kind"`
	Loading         bool              `json:"loading"`
	Content         string            `json:"content,omitempty"`
	Error           string            `json:"error,omitempty"`
	Troubleshooting []string          `json:"troubleshooting,omitempty"`
	Sources         []GroundingSource `json:"sources,omitempty"`
}

// InitialResult returns the pristine entry for k.
func InitialResult(k AgentKind) AgentResult {
	r := AgentResult{Kind: k}
	if k.Interactive() {
		r.Content = mockInitialContent
	}
	return r
}

// Done reports whether the agent has produced content and is not running.
func (r AgentResult) Done() bool {
	return r.Content != "" && !r.Loading
}

// Failed reports whether the last invocation surfaced an error.
func (r AgentResult) Failed() bool {
	return r.Error != "" && !r.Loading
}

// Patch is a partial update to an AgentResult. Nil fields are left untouched;
// non-nil fields overwrite, so Error pointing at "" clears a previous error.
type Patch struct {
	Loading         *bool
	Content         *string
	Error           *string
	Troubleshooting *[]string
	Sources         *[]GroundingSource
}

// Apply shallow-merges the patch onto r and returns the merged copy.
func (p Patch) Apply(r AgentResult) AgentResult {
	if p.Loading != nil {
		r.Loading = *p.Loading
	}
	if p.Content != nil {
		r.Content = *p.Content
	}
	if p.Error != nil {
		r.Error = *p.Error
	}
	if p.Troubleshooting != nil {
		r.Troubleshooting = cloneStrings(*p.Troubleshooting)
	}
	if p.Sources != nil {
		r.Sources = cloneSources(*p.Sources)
	}
	return r
}

// Merge combines p with a later patch q; fields set in q win.
func (p Patch) Merge(q Patch) Patch {
	out := p
	if q.Loading != nil {
		out.Loading = q.Loading
	}
	if q.Content != nil {
		out.Content = q.Content
	}
	if q.Error != nil {
		out.Error = q.Error
	}
	if q.Troubleshooting != nil {
		out.Troubleshooting = q.Troubleshooting
	}
	if q.Sources != nil {
		out.Sources = q.Sources
	}
	return out
}

// Clone returns a deep copy of r.
func (r AgentResult) Clone() AgentResult {
	r.Troubleshooting = cloneStrings(r.Troubleshooting)
	r.Sources = cloneSources(r.Sources)
	return r
}

// Ptr returns a pointer to v, for building patches.
func Ptr[T any](v T) *T {
	return &v
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneSources(in []GroundingSource) []GroundingSource {
	if in == nil {
		return nil
	}
	out := make([]GroundingSource, len(in))
	copy(out, in)
	return out
}
