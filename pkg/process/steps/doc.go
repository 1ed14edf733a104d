// Package steps provides reusable in-memory steps built on the process package: appending, logging,
// concatenating tables, comparing sets and detecting changes between a local and a remote version of
// the same documents.
package steps
