package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
)

const allowQuery = "data.titan.authz.allow"

// Default Rego policy. Extra modules loaded from AUTHZ_POLICY_FILE may add allow rules to the same package.
const defaultRegoPolicy = `package titan.authz

default allow := false

admin_actions := {"team.create", "org.invite", "org.remove_member", "project.invite"}

allow if {
	admin_actions[input.action]
	input.subject.is_administrator
}

allow if {
	input.action == "project.create"
	input.subject.in_target_team
}

allow if {
	input.action == "followup.assign"
	input.subject.assignee_in_project_team
}
`

// OPAEvaluator evaluates authorization decisions with an OPA Rego policy compiled once at startup.
type OPAEvaluator struct {
	compiler *ast.Compiler
}

// NewOPAEvaluator compiles the default policy together with extraModules (file name -> Rego source).
func NewOPAEvaluator(extraModules map[string]string) (*OPAEvaluator, error) {
	modules := map[string]string{"authz_default.rego": defaultRegoPolicy}
	for name, src := range extraModules {
		modules[name] = src
	}
	compiler, err := ast.CompileModules(modules)
	if err != nil {
		return nil, fmt.Errorf("compile policy: %w", err)
	}
	return &OPAEvaluator{compiler: compiler}, nil
}

// LoadPolicyFile reads an extra Rego module from path. An empty path yields no modules.
func LoadPolicyFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return map[string]string{path: string(src)}, nil
}

// Allow evaluates the policy for action. Any evaluation failure denies.
func (e *OPAEvaluator) Allow(ctx context.Context, action string, subject Subject, resource Resource) (bool, error) {
	input := map[string]interface{}{
		"action": action,
		"subject": map[string]interface{}{
			"id":                       subject.UserID,
			"is_administrator":         subject.IsAdministrator,
			"in_target_team":           subject.InTargetTeam,
			"assignee_in_project_team": subject.AssigneeInProjectTeam,
		},
		"resource": map[string]interface{}{
			"organisation": resource.Organisation,
			"project":      resource.Project,
		},
	}
	return e.eval(ctx, input)
}

// HealthCheck verifies that the compiled policy evaluates. Returns nil on success.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	_, err := e.eval(ctx, map[string]interface{}{
		"action":   "health",
		"subject":  map[string]interface{}{},
		"resource": map[string]interface{}{},
	})
	return err
}

func (e *OPAEvaluator) eval(ctx context.Context, input map[string]interface{}) (bool, error) {
	q := rego.New(
		rego.Query(allowQuery),
		rego.Compiler(e.compiler),
		rego.Input(input),
	)
	rs, err := q.Eval(ctx)
	if err != nil {
		return false, fmt.Errorf("eval policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, fmt.Errorf("policy query returned no result")
	}
	allowed, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("policy allow is %T, want bool", rs[0].Expressions[0].Value)
	}
	return allowed, nil
}
