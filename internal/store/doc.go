// Package store provides pooled, tenant-agnostic access to the Postgres
// database that backs the Unwind tools.
//
// # Architecture
//
// Querier is the narrow interface the tool layer depends on. It exposes four
// primitives, each running exactly one parameterized statement on a connection
// borrowed from the pool for the duration of that call:
//
//   - FetchOne: first row or nil
//   - FetchAll: every row, never nil
//   - Execute: affected row count
//   - ExecuteReturning: rows from a RETURNING clause
//
// Accessor implements Querier on top of pgxpool. It is an explicit handle with
// a New/Init/Close lifecycle; there is no package-level singleton.
//
// # Lifecycle
//
//	acc := store.New(cfg, logger)
//	if err := acc.Init(ctx); err != nil { ... }
//	defer acc.Close()
//
// Init fails with ErrMissingCredentials when neither a URL nor host and
// password are configured, and with ErrAlreadyInitialized on a second call.
// Queries before Init or after Close fail with ErrNotInitialized. Close
// cancels in-flight statements before closing connections.
//
// # Error Handling
//
// Driver failures are wrapped in *QueryError, which records the statement and
// the number of bound parameters but never parameter values. Undefined table
// or column errors surface as *SchemaMismatchError so a drifted schema is
// distinguishable from an outage. VerifySchema checks the expected relations
// against information_schema at startup.
//
// # Testing
//
// Use NewMockQuerier for unit tests of code that depends on Querier. The
// integration tests in this package run against a disposable Postgres
// container and are skipped with -short.
package store
