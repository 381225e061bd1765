package models

import "github.com/golang-jwt/jwt/v5"

// ActorRole describes what the authenticated principal may do.
type ActorRole string

const (
	RoleComplianceOfficer ActorRole = "COMPLIANCE_OFFICER"
	RoleDataSteward       ActorRole = "DATA_STEWARD"
	RoleSystemIntegration ActorRole = "SYSTEM_INTEGRATION"
	RoleAuditor           ActorRole = "AUDITOR"
)

// JWTClaims is the access-token payload. Identity is issued by the hosting
// environment; this service only validates the token and requires both a
// tenant and an actor on every request.
type JWTClaims struct {
	TenantID string    `json:"tenant_id"`
	ActorID  string    `json:"actor_id"`
	Role     ActorRole `json:"role"`
	jwt.RegisteredClaims
}
