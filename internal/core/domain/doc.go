// Package domain defines the core business entities for carcrm.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Customer: A consultant's customer record with its remote linkage
//   - FormTemplate / ExcelTemplate: Printable and export templates
//   - Credential: A stored OAuth access token and its expiry
//   - SyncStatus: Transient state of the sync engine
//   - PendingWrite: A durable queued local mutation awaiting push
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
