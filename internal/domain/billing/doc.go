// Package billing holds the local mirror of Stripe subscription state.
//
// Subscriptions and payments are written only by webhook reconciliation.
// Rows are keyed by Stripe's natural ids (subscription id, invoice id) so that
// re-applying an event overwrites with the same values.
package billing
