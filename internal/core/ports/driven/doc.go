// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - CredentialStore: Durable token persistence
//   - CustomerStore / TemplateStore: Local record persistence
//   - QueueStore: Durable pending-write persistence
//   - RemoteStorageClient: The cloud file-storage subset sync needs
//   - RemoteIDCache: Persisted logical-name -> remote-id memo
//   - ConsentProvider: Interactive and silent token acquisition
//   - ConfigStore: Persistent application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
