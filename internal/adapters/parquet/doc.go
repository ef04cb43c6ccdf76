// Package parquet stores datasets as zstd-compressed Parquet files.
//
// Writes go to a temp file in the target directory which is fsynced and
// renamed over the destination, so readers see either the previous file
// or the new one.
package parquet
