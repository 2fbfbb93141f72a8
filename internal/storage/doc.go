// Package storage persists toast lifecycle history.
//
// Two backends are available:
//   - "file":   JSON Lines, one entry per line, pruned by rewriting
//   - "sqlite": a single SQLite database (pure Go driver)
package storage
