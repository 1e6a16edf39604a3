// Package engine opens SQLite databases through the pure-Go modernc.org/sqlite
// driver so the rest of the module shares one driver and one set of
// connection pragmas.
package engine
