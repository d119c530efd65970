// Package migration converts between the two generations of ledger records:
// the legacy shape, where entries live in their own rows and money is a float,
// and the current shape, where entries are embedded in the group and money is
// held in minor units. Every conversion can be checked with a
// CompatibilityValidator instead of being trusted.
package migration
