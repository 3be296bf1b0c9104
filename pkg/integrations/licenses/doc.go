// Package licenses provides access to the license scoring service.
//
// The service takes every analyzed component's declared licenses in one
// request and answers with a stack-level verdict: a representative
// license when one exists, or the conflict, unknown-license, and outlier
// details when it does not. Responses are not cached; the verdict
// depends on the full package set, which differs per request.
package licenses
