package model

// Policy effects returned to the gateway.
const (
	EffectAllow = "Allow"
	EffectDeny  = "Deny"
)

// PermissionGeneral is the flag every authenticated user holds.
const PermissionGeneral = "g"

// Decision is the authorizer verdict for a single token.
type Decision struct {
	Allow       bool
	UserID      string
	Permissions string
}

type AuthorizerRequest struct {
	AuthorizationToken string `json:"AuthorizationToken"`
	MethodArn          string `json:"MethodArn"`
}

type AuthorizerResponse struct {
	PrincipalID    string            `json:"PrincipalId"`
	PolicyDocument PolicyDocument    `json:"PolicyDocument"`
	Context        AuthorizerContext `json:"Context"`
	// UsageIdentifierKey selects the gateway usage plan.
	UsageIdentifierKey string `json:"UsageIdentifierKey,omitempty"`
}

// PolicyDocument is an IAM-style policy with a single statement per request.
type PolicyDocument struct {
	Version   string            `json:"Version"`
	Statement []PolicyStatement `json:"Statement"`
}

type PolicyStatement struct {
	Action   []string `json:"Action"`
	Effect   string   `json:"Effect"`
	Resource []string `json:"Resource"`
}

type AuthorizerContext struct {
	User        string `json:"User"`
	Path        string `json:"Path"`
	Permissions string `json:"Permissions"`
}
