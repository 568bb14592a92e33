// Package migrations registers the SQL schema. Blank-import it from any
// binary that runs migrate or serve against a SQL driver.
package migrations
