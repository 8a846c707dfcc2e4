package token

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Mode is the Token Validator's authorization mode, per SPEC_FULL.md §4.3.
type Mode string

const (
	ModeDisabled      Mode = "disabled"
	ModeAnonymousPull Mode = "anonymous_pull"
	ModeStrict        Mode = "strict"
)

// authzPolicy is the embedded Rego module deciding push/pull authorization.
// This is the same "compile a small module, evaluate per request" idiom
// the source codebase used for vulnerability-gate policy, repurposed here
// for the mode-based authorization decision spec.md §4.3 describes.
const authzPolicy = `
package repoworker.authz

default allow = false

read_methods := {"GET", "HEAD"}

allow {
	input.mode == "disabled"
}

allow {
	input.mode == "anonymous_pull"
	read_methods[input.method]
}

allow {
	input.has_token
}
`

// Evaluator evaluates the authorization policy for a given (mode, method,
// has_token) tuple.
type Evaluator struct {
	prepared rego.PreparedEvalQuery
}

// NewEvaluator compiles the embedded authorization policy once at startup.
func NewEvaluator(ctx context.Context) (*Evaluator, error) {
	prepared, err := rego.New(
		rego.Query("data.repoworker.authz.allow"),
		rego.Module("authz.rego", authzPolicy),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("token: preparing authorization policy: %w", err)
	}
	return &Evaluator{prepared: prepared}, nil
}

// Input is the decision input for one request.
type Input struct {
	Mode     Mode   `json:"mode"`
	Method   string `json:"method"`
	HasToken bool   `json:"has_token"`
}

// Allow reports whether the request is authorized under the configured
// mode.
func (e *Evaluator) Allow(ctx context.Context, in Input) (bool, error) {
	results, err := e.prepared.Eval(ctx, rego.EvalInput(in))
	if err != nil {
		return false, fmt.Errorf("token: evaluating authorization policy: %w", err)
	}
	if len(results) == 0 {
		return false, fmt.Errorf("token: undefined authorization result")
	}
	allowed, ok := results[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("token: unexpected authorization result type")
	}
	return allowed, nil
}
