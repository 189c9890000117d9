// Package validation runs the publish checks of a flow.
//
// A Registry holds named checks that inspect a fully flattened graph and
// report Pass, Fail or Not applicable. Checks are independent of each other
// and never return an error: a failed check is advisory and it is up to the
// caller to block publication.
package validation
