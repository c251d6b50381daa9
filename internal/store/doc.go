// Package store provides SQLite-backed durable storage for the terminal.
//
// The store holds three kinds of data:
//   - Credentials: the single set of accounting service credentials
//   - Catalog: members and articles mirrored from the accounting service,
//     replaced wholesale on every successful refresh
//   - Ledger: sales that happened locally but are not yet acknowledged by
//     the accounting service (an outbox)
//
// # Guarantees
//
// Catalog replacement runs delete-all and insert-all in one transaction, so
// readers see either the old or the new catalog. Rows that violate a
// uniqueness constraint are logged and skipped; the rest of the batch still
// commits. Any other error rolls the whole replacement back.
//
// A sale leaves the ledger only through DeleteSale, which callers issue per
// sale after the accounting service acknowledged it. AppendSales records a
// whole checkout in one transaction.
//
// Ledger reads are ordered by sale ID. IDs are UUIDv7, so this is creation
// order.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
