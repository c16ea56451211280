// Package query — rules.go implements CEL-based routing overrides. Operators
// can declare expressions over the raw query text that force a route before
// the built-in substring classification runs.
package query

import (
	"fmt"
	"log/slog"

	"github.com/google/cel-go/cel"

	"github.com/AditiNamboodirirpad/AI-query-agent-Kubernetes/internal/config"
)

// ruleCostLimit bounds CEL evaluation cost per rule.
const ruleCostLimit uint64 = 1000

// compiledRule pairs a routing rule with its compiled CEL program.
type compiledRule struct {
	name    string
	route   Route
	program cel.Program
}

// RuleEngine evaluates configured routing rules in order. The first rule
// whose expression evaluates to true decides the route. Rules are compiled
// once at startup and are immutable afterwards.
type RuleEngine struct {
	rules  []compiledRule
	logger *slog.Logger
}

// NewRuleEngine compiles the configured routing rules. A compile failure in
// any rule is a startup error.
func NewRuleEngine(rules []config.RoutingRule, logger *slog.Logger) (*RuleEngine, error) {
	if logger == nil {
		return nil, fmt.Errorf("rules: logger must not be nil")
	}

	env, err := cel.NewEnv(
		cel.Variable("query", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("rules: creating CEL environment: %w", err)
	}

	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		ast, issues := env.Compile(r.Expression)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("rules: compiling rule %q: %w", r.Name, issues.Err())
		}
		if ast.OutputType() != cel.BoolType {
			return nil, fmt.Errorf("rules: rule %q must return bool, got %s", r.Name, ast.OutputType())
		}
		prog, err := env.Program(ast, cel.CostLimit(ruleCostLimit))
		if err != nil {
			return nil, fmt.Errorf("rules: creating program for rule %q: %w", r.Name, err)
		}
		compiled = append(compiled, compiledRule{
			name:    r.Name,
			route:   Route(r.Route),
			program: prog,
		})
	}

	if len(compiled) > 0 {
		logger.Info("routing rules loaded", "count", len(compiled))
	}

	return &RuleEngine{rules: compiled, logger: logger}, nil
}

// Route evaluates the rules against the query text. Returns the forced route
// and true when a rule matched. Evaluation errors are logged and the rule is
// skipped, so a misbehaving expression degrades to the built-in
// classification instead of failing the request.
func (e *RuleEngine) Route(text string) (Route, bool) {
	if e == nil {
		return "", false
	}
	vars := map[string]any{"query": text}
	for _, r := range e.rules {
		out, _, err := r.program.Eval(vars)
		if err != nil {
			e.logger.Warn("routing rule evaluation error", "rule", r.name, "error", err)
			continue
		}
		matched, ok := out.Value().(bool)
		if !ok {
			e.logger.Warn("routing rule returned non-bool", "rule", r.name)
			continue
		}
		if matched {
			e.logger.Info("routing rule matched", "rule", r.name, "route", string(r.route))
			return r.route, true
		}
	}
	return "", false
}
