// Package auth verifies bearer tokens and extracts the caller identity from
// their subject claim.
package auth

const (
	StrategyHS256 = "hs256"
	StrategyOIDC  = "oidc"
)
