// Package models defines the core domain models for Tally.
//
// # Money
//
// Every amount in the system is an int64 in minor currency units (cents).
// There is no floating point anywhere in the domain; parsing and formatting
// of human-readable amounts is a client concern.
//
// # Balances
//
// Each (user, group) pair has one Member row carrying a signed balance:
// positive means the group owes the member, negative means the member owes
// the group. Within a group, the balances of all active members always sum
// to zero. Members who leave a group are flipped to inactive with their
// balance frozen at zero; the row is never deleted so historical expense
// shares and payments stay resolvable.
//
// # Design principles
//
//  1. Models hold data only; the ledger math lives in internal/ledger.
//  2. Relationships use ID strings, not pointers, to avoid cycles.
//  3. Timestamps are Unix seconds (int64) throughout.
package models
