package agronomy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agromitra/agromitra/llm"
)

// ModelClient is the slice of the model client the orchestrators use.
type ModelClient interface {
	CompleteStructured(ctx context.Context, req llm.Request, out any) (*llm.Response, error)
}

// RetryPolicy controls what happens when a regenerated candidate still
// fails validation. The default accepts it as-is: availability over
// precision, and never more than one corrective call. Strict mode fails the
// request instead.
type RetryPolicy struct {
	Strict bool
}

// retryInstruction is the fixed correction block prepended to the issue
// list on the single regeneration call.
const retryInstruction = `Your previous response failed deterministic validation. ` +
	`Fix ONLY the listed problems and return the complete response again in the exact same JSON schema. ` +
	`Do not change fields that are not mentioned in the problems.`

// RegenerateOnce issues exactly one corrective generation call: the original
// request augmented with the validation issues and the previous output. The
// caller accepts the returned candidate regardless of its own validation
// outcome unless a strict policy says otherwise.
func RegenerateOnce[T any](ctx context.Context, client ModelClient, req llm.Request, issues []string, previous *T) (*T, error) {
	prevJSON, err := json.Marshal(previous)
	if err != nil {
		return nil, fmt.Errorf("marshal previous output: %w", err)
	}

	var prompt strings.Builder
	prompt.WriteString(retryInstruction)
	prompt.WriteString("\n\nProblems found:\n")
	for _, issue := range issues {
		prompt.WriteString("- ")
		prompt.WriteString(issue)
		prompt.WriteString("\n")
	}
	prompt.WriteString("\nPrevious output:\n")
	prompt.Write(prevJSON)

	retryReq := req
	retryReq.Contents = make([]llm.Content, 0, len(req.Contents)+1)
	retryReq.Contents = append(retryReq.Contents, req.Contents...)
	retryReq.Contents = append(retryReq.Contents, llm.TextContent("user", prompt.String()))

	candidate := new(T)
	if _, err := client.CompleteStructured(ctx, retryReq, candidate); err != nil {
		return nil, fmt.Errorf("regenerate after validation: %w", err)
	}
	return candidate, nil
}
