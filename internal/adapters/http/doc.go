// Package http fetches records from the snapshot source over HTTP.
//
// Endpoints:
//
//	GET {base}/v1/{domain}/{key}        records of one domain for one key
//	GET {base}/v1/periods/{year}/{month} keys belonging to a period
//
// Record bodies are a JSON object or an array of objects. Numbers decode
// as int64 when integral and float64 otherwise.
package http
