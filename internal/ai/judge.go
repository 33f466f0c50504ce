package ai

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"massaudit/internal/types"
)

type judgeResponse struct {
	Classification string `json:"classification"`
	Reason         string `json:"reason"`
}

// JudgeExecution classifies the console output of a PoC that actually ran
// against the target. An unparseable or out-of-vocabulary answer falls
// back to ClassUnknown rather than retrying; the raw output is preserved
// upstream either way.
func (e *Engine) JudgeExecution(ctx context.Context, project, output string) (types.Classification, string, error) {
	prompt := fmt.Sprintf(`A proof-of-concept exploit program was compiled and executed against its target. Classify the run from its console output.

Console output:
%s

Classifications:
- "crash_confirmed": the process terminated on an unrecovered fault (panic, segfault, fatal error)
- "crash_recovered": a fault occurred but was caught or handled; denial-of-service concern, not a hard compromise
- "defended": the program ran to completion with no fault; the target resisted the PoC
- "test_failed": the program ran to completion but its assertion did not hold; the PoC did not trigger the expected condition

Respond with a single JSON object:
{
  "classification": "crash_confirmed" | "crash_recovered" | "defended" | "test_failed",
  "reason": "one sentence"
}`, truncateString(output, 12000))

	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
	}

	text, err := e.callModel(ctx, project, "execution-judge", messages, 1024)
	if err != nil {
		return "", "", fmt.Errorf("judge call failed: %w", err)
	}

	class, reason, ok := parseJudgeResponse(text)
	if !ok {
		fmt.Fprintf(os.Stderr, "warning: unparseable judge response, recording classification as unknown\n")
		return types.ClassUnknown, "judge response could not be parsed: " + truncateString(text, 200), nil
	}
	return class, reason, nil
}

func parseJudgeResponse(text string) (types.Classification, string, bool) {
	result := Parse[judgeResponse](text)
	if !result.Success {
		return "", "", false
	}

	class := types.Classification(strings.ToLower(strings.TrimSpace(result.Data.Classification)))
	if !class.Valid() || class == types.ClassUnknown {
		return "", "", false
	}
	return class, result.Data.Reason, true
}
