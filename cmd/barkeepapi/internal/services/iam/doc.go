// Package iam provides the identity service for the barkeep API.
//
// An identity is the role granted to a subject of the external OIDC
// provider. The service resolves identities at login, registers first-time
// subjects with the default role, and exposes the administrative operations
// used by the `users` CLI.
//
// Request Flow:
//
//	/auth callback → Login(subject) → Principal{subject, role} → session cookie
//	       ↓ ErrUserNotFound
//	  pending cookie → /register → Register(subject) → Principal → session cookie
//
// Roles are resolved once per login and carried in the session cookie; later
// role changes take effect at the next login.
package iam
