// Package manifest writes the artifact-metadata.json contract file that
// downstream analysis tooling consumes and stamps the artifact fields
// onto the run's ledger row. The field names are an external contract
// and stay PascalCase; unknown fields are ignored by consumers, so
// additions are safe.
package manifest
