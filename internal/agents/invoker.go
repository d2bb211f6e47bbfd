// Package agents runs one preparation agent against the language model and
// turns every outcome, including failures, into a result patch.
package agents

import (
	"context"
	"strings"
	"time"

	"github.com/jonathan/placement-prep/internal/llm"
	"github.com/jonathan/placement-prep/internal/prompts"
	"github.com/jonathan/placement-prep/internal/research"
	"github.com/jonathan/placement-prep/internal/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultTimeout bounds a single agent call.
const DefaultTimeout = 2 * time.Minute

// Runner is the interface the dispatch coordinator depends on.
type Runner interface {
	Invoke(ctx context.Context, kind types.AgentKind, input types.UserInput) types.Patch
}

// Invoker implements Runner over an llm.Client and an optional web Searcher.
type Invoker struct {
	client   llm.Client
	searcher research.Searcher
	timeout  time.Duration
	log      *logrus.Entry
}

// NewInvoker creates an Invoker. client may be nil, in which case every call
// resolves to a configuration error. searcher may be nil to disable grounding.
func NewInvoker(client llm.Client, searcher research.Searcher, timeout time.Duration, log *logrus.Entry) *Invoker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Invoker{
		client:   client,
		searcher: searcher,
		timeout:  timeout,
		log:      log.WithField("component", "agents"),
	}
}

type agentPrompt struct {
	key         string
	tier        llm.ModelTier
	jdFallback  string
	cvFallback  string
	wantsInputs bool
}

var agentPrompts = map[types.AgentKind]agentPrompt{
	types.AgentCompanyResearch:    {key: "company-research", tier: llm.TierStandard},
	types.AgentRecruitmentProcess: {key: "recruitment-process", tier: llm.TierStandard},
	types.AgentPreviousQuestions:  {key: "previous-questions", tier: llm.TierStandard},
	types.AgentResumeOptimization: {
		key: "resume-optimization", tier: llm.TierAdvanced, wantsInputs: true,
		jdFallback: "fallback-resume-jd", cvFallback: "fallback-resume-content",
	},
	types.AgentHRAnswers: {
		key: "hr-answers", tier: llm.TierStandard, wantsInputs: true,
		jdFallback: "fallback-hr-jd", cvFallback: "fallback-hr-content",
	},
}

// Invoke runs the agent for kind. It never fails: errors and panics come back
// as a patch carrying Error and Troubleshooting with empty content.
func (inv *Invoker) Invoke(ctx context.Context, kind types.AgentKind, input types.UserInput) (patch types.Patch) {
	log := inv.log.WithField("agent", kind)

	if kind.Interactive() {
		return types.Patch{Content: types.Ptr(types.MockReadyContent), Loading: types.Ptr(false)}
	}

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("agent panicked")
			patch = failurePatch(lookup(CategoryUnknown))
		}
	}()

	if inv.client == nil {
		log.Warn("no model client configured")
		return failurePatch(Diagnosis{
			Category:        CategoryAuthorization,
			Message:         errClientUnavailable.Error(),
			Troubleshooting: append([]string(nil), clientUnavailableHints...),
		})
	}

	spec, ok := agentPrompts[kind]
	if !ok {
		log.Error("no prompt registered for agent")
		return failurePatch(lookup(CategoryUnknown))
	}

	var hits []research.Hit
	if kind.UsesSearch() {
		hits = research.Gather(ctx, inv.searcher, kind, input, log)
	}

	prompt, err := buildPrompt(spec, input, hits)
	if err != nil {
		log.WithError(err).Error("failed to build prompt")
		return failurePatch(lookup(CategoryUnknown))
	}

	callCtx, cancel := context.WithTimeout(ctx, inv.timeout)
	defer cancel()

	start := time.Now()
	text, err := inv.client.GenerateContent(callCtx, prompt, spec.tier)
	if err != nil {
		d := Classify(err)
		log.WithError(err).WithField("category", d.Category).Warn("agent failed")
		return failurePatch(d)
	}
	log.WithField("duration", time.Since(start).String()).Info("agent completed")

	sources := []types.GroundingSource{}
	if kind.UsesSearch() {
		sources = research.ToSources(hits)
	}
	return types.Patch{
		Content:         types.Ptr(text),
		Sources:         &sources,
		Error:           types.Ptr(""),
		Troubleshooting: &[]string{},
	}
}

func failurePatch(d Diagnosis) types.Patch {
	hints := d.Troubleshooting
	return types.Patch{
		Content:         types.Ptr(""),
		Sources:         &[]types.GroundingSource{},
		Error:           types.Ptr(d.Message),
		Troubleshooting: &hints,
	}
}

func buildPrompt(spec agentPrompt, input types.UserInput, hits []research.Hit) (string, error) {
	data := map[string]string{
		"CompanyName":   input.CompanyName,
		"JobRole":       input.JobRole,
		"SearchContext": "",
	}

	if spec.wantsInputs {
		jd, err := valueOr(input.JobDescription, spec.jdFallback)
		if err != nil {
			return "", err
		}
		cv, err := valueOr(input.ResumeContent, spec.cvFallback)
		if err != nil {
			return "", err
		}
		data["JobDescription"] = jd
		data["ResumeContent"] = cv
	}

	if len(hits) > 0 {
		sc, err := prompts.Render(prompts.AgentsFile, "search-context", map[string]string{
			"Results": research.FormatContext(hits),
		})
		if err != nil {
			return "", err
		}
		data["SearchContext"] = sc
	}

	prompt, err := prompts.Render(prompts.AgentsFile, spec.key, data)
	if err != nil {
		return "", errors.Wrapf(err, "agent prompt %s", spec.key)
	}
	return prompt, nil
}

// valueOr returns v, or the fallback prompt named key when v is blank.
func valueOr(v, key string) (string, error) {
	if strings.TrimSpace(v) != "" {
		return v, nil
	}
	return prompts.Get(prompts.AgentsFile, key)
}
