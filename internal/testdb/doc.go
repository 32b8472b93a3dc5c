// Package testdb provides helpers for integration tests that run against a
// real PostgreSQL database.
//
// Tests using it carry the integration build tag and are skipped when no
// database URL is configured outside CI:
//
//	//go:build integration
//
//	func TestSomething(t *testing.T) {
//		db := testdb.Open(t)
//		testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//			// work with tx; everything is rolled back afterwards
//		})
//	}
package testdb
