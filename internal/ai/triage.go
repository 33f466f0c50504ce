package ai

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"massaudit/internal/types"
)

// triageResponse is the JSON envelope the model is instructed to answer
// with on every triage round. Either a final verdict or a context request.
type triageResponse struct {
	Severity        string `json:"severity"`
	Reason          string `json:"reason"`
	Testable        bool   `json:"testable"`
	PoC             string `json:"poc"`
	NeedMoreContext bool   `json:"need_more_context"`
	ContextRequest  string `json:"context_request"`
}

// AnalyzeFinding runs the interactive triage session for one finding. The
// model may ask for additional symbol definitions up to the configured
// round budget; each request is answered via the context resolver and the
// round recorded in the verdict's transcript.
func (e *Engine) AnalyzeFinding(ctx context.Context, project, projectPath string, finding types.Finding) (*types.Verdict, error) {
	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(e.buildTriagePrompt(finding))),
	}

	var rounds []types.ContextRound

	for round := 0; ; round++ {
		text, err := e.callModel(ctx, project, "triage", messages, 4096)
		if err != nil {
			return nil, fmt.Errorf("triage call for %s failed: %w", finding, err)
		}

		resp, ok := parseTriageResponse(text)
		if !ok {
			// An unparseable round is not worth retrying: downgrade to a
			// non-testable medium verdict carrying the raw text.
			fmt.Fprintf(os.Stderr, "warning: unparseable triage response for %s\n", finding)
			return &types.Verdict{
				Severity: types.SeverityMedium,
				Reason:   "unparseable reasoning response: " + truncateString(text, 300),
				Rounds:   rounds,
			}, nil
		}

		if resp.NeedMoreContext && resp.ContextRequest != "" && round < e.maxContextRounds {
			entry := types.ContextRound{Round: round, Requested: resp.ContextRequest}

			resolved, err := e.resolver.Resolve(projectPath, resp.ContextRequest)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: context resolution for %q failed: %v\n", resp.ContextRequest, err)
			}

			var reply string
			if resolved != nil {
				entry.Found = true
				entry.FilePath = resolved.FilePath
				entry.Language = resolved.Language
				entry.Code = resolved.Code
				reply = fmt.Sprintf("Definition of %s (from %s, %s):\n\n%s\n\nGive your final verdict now if possible.",
					resolved.Symbol, resolved.FilePath, resolved.Language, resolved.Code)
			} else {
				reply = fmt.Sprintf("No definition of %q was found in the project. Give your final verdict with the information you have.",
					resp.ContextRequest)
			}
			rounds = append(rounds, entry)

			messages = append(messages,
				anthropic.NewAssistantMessage(anthropic.NewTextBlock(text)),
				anthropic.NewUserMessage(anthropic.NewTextBlock(reply)),
			)
			continue
		}

		severity := types.Severity(strings.ToLower(resp.Severity))
		if !severity.Valid() {
			fmt.Fprintf(os.Stderr, "warning: model returned unknown severity %q for %s, recording as info\n", resp.Severity, finding)
			severity = types.SeverityInfo
		}

		return &types.Verdict{
			Severity: severity,
			Reason:   resp.Reason,
			Testable: resp.Testable,
			PoC:      resp.PoC,
			Rounds:   rounds,
		}, nil
	}
}

func parseTriageResponse(text string) (*triageResponse, bool) {
	result := Parse[triageResponse](text)
	if !result.Success {
		return nil, false
	}
	return &result.Data, true
}

func (e *Engine) buildTriagePrompt(finding types.Finding) string {
	return fmt.Sprintf(`You are a security auditor triaging a static-analysis finding. Decide whether it is a real, exploitable vulnerability.

Rule: %s
Location: %s:%d
Analyzer message: %s

Code around the finding:
%s

Respond with a single JSON object, no prose:
{
  "severity": "critical" | "high" | "medium" | "low" | "info",
  "reason": "one or two sentences justifying the verdict",
  "testable": true if a standalone proof-of-concept program could demonstrate the issue,
  "poc": "complete runnable proof-of-concept source, or empty string",
  "need_more_context": true if you cannot judge without seeing another definition,
  "context_request": "the function/variable/type name you need, or empty string"
}

If need_more_context is true you may leave severity/poc empty; you will receive the requested definition and be asked again. Request at most one symbol per round.`,
		finding.RuleID, finding.FilePath, finding.Line, finding.Message, finding.Snippet)
}
