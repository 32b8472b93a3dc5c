// Package testutils holds helpers shared by HTTP level tests: signing access
// tokens the way the external issuer does and building authenticated requests.
package testutils
