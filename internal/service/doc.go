// Package service contains the application-specific use cases and business
// logic. It orchestrates interactions between domain objects and repositories
// (defined in internal/store) to fulfill application features.
//
// The service package implements the application layer: use cases that
// coordinate the flow of data between external interfaces (the Telegram
// webhook, the admin API) and the domain layer, abstracting away
// infrastructure details.
//
// Key components:
//
// 1. LearnerService:
//   - Profile lifecycle (create-on-first-contact, difficulty and language
//     preferences with optimistic-concurrency updates)
//   - Allow-list management gated on configured admin identities
//
// 2. The practice subpackage:
//   - The task lifecycle coordinator driving the select/pick/generate/
//     evaluate cycle behind the conversational commands
//
// 3. The auth subpackage:
//   - Admin API token issuing and validation, shared-secret verification
//
// Services receive dependencies through constructor injection, apply
// transactional boundaries when operations span multiple stores, and
// translate store-specific errors into application-level errors the
// delivery layers can map onto replies and HTTP status codes.
//
// The service layer depends on domain entities and store interfaces, never
// on specific infrastructure implementations.
package service
