// Package ledger derives financial metrics from a list of transactions.
//
// Every function here is a pure computation over its input slice: monthly
// totals, category breakdowns, per-month history, budget health and the
// savings checks that decide whether an expense may be paid from savings.
// Input order never matters and inputs are never mutated.
package ledger
