// Package ledger holds the pure double-entry rules: money in minor units,
// entry validation, the confirmation state machine and funding arithmetic.
// Nothing in this package touches the database.
package ledger
