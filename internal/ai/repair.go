package ai

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
)

type repairResponse struct {
	FixedCode string `json:"fixed_code"`
	Changes   string `json:"changes"`
}

// FixPoCCode asks the reasoning engine to repair a PoC that failed to
// build or run for environmental reasons, given the failure output. The
// returned text is the full replacement source for the next attempt.
func (e *Engine) FixPoCCode(ctx context.Context, project, code, errorOutput string) (string, error) {
	prompt := fmt.Sprintf(`The following proof-of-concept program failed to compile or start. Fix the build/environment problems only; do not change what the program is trying to demonstrate.

Source:
%s

Failure output:
%s

Respond with a single JSON object:
{
  "fixed_code": "the complete corrected source",
  "changes": "one sentence describing what was fixed"
}`, code, truncateString(errorOutput, 8000))

	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
	}

	text, err := e.callModel(ctx, project, "poc-repair", messages, 8192)
	if err != nil {
		return "", fmt.Errorf("repair call failed: %w", err)
	}

	repaired := parseRepairResponse(text)
	if repaired == "" {
		return "", fmt.Errorf("repair response contained no code: %s", truncateString(text, 200))
	}
	return repaired, nil
}

// parseRepairResponse extracts the replacement source from a repair reply.
// Models occasionally answer with a bare fenced code block instead of the
// JSON envelope; that is accepted as the code itself.
func parseRepairResponse(text string) string {
	result := Parse[repairResponse](text)
	if result.Success {
		return result.Data.FixedCode
	}
	return ExtractCodeBlock(text)
}
