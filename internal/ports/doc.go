// Package ports defines the interfaces that connect the application layer
// to infrastructure adapters.
//
// # Port Interfaces
//
//   - [Fetcher]: Retrieves records of one domain for one key
//   - [PeriodLister]: Lists the keys that belong to a year and month
//   - [NameParser]: Splits a corporate name into legal form, brand and reading
//   - [DatasetStore]: Saves and loads datasets atomically
//   - [RowSink]: Exports datasets to a relational database
//   - [RunStatusRepository]: Persists the last run summary
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them.
package ports
