// Package domain contains the core entities and value objects for snapmerge.
//
// This package is the innermost layer. It has no dependencies on
// infrastructure concerns (HTTP, file system, logging) and contains only the
// rules that every other layer relies on.
//
// # Entities
//
//   - [Record]: one fetched entity as named scalar fields
//   - [Schema]: the declared fields, entity key and version of a dataset
//   - [Dataset]: rows of a homogeneous schema, the unit that is merged and stored
//   - [KeyGroups]: granular identifiers grouped by their 10-character prefix
//   - [Failure]: a per-key fetch failure collected by the worker pool
//
// The [Catalog] declares the schemas of the race and registry datasets.
package domain
