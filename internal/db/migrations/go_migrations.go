// Package migrations holds the goose migrations for the Tomhasit database.
// SQL files cover portable tables; Go files cover tables whose column types
// depend on the driver, such as the scs session table.
package migrations

// dialect is the goose dialect of the database being migrated.
var dialect string

// SetDialect tells the Go migrations which driver they run against. db.Migrate
// calls it before goose.Up.
func SetDialect(d string) {
	dialect = d
}
