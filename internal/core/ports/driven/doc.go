// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Ingester: Uploads a source file and returns raw chunks
//   - Submitter: Sends the final chunk set for embedding generation
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - DocumentInspector: Local PDF preflight. Without it, every file is sent as-is.
//   - HealthChecker: Service reachability probe.
//   - ServerValidator: Probes a candidate server configuration for settings checks.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
