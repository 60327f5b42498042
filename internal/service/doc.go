// Package service contains the card-ledger use cases: card administration
// and owner views, the transfer engine, and user management with cascade
// delete.
//
// Services receive their stores through constructor injection and take the
// caller's identity as an explicit domain.Principal. Authorization by role
// is the caller's concern. Every failure a caller can act on is returned as
// a domain error kind (see domain.KindOf); anything else is wrapped in a
// ServiceError and classifies as KindInternal.
//
// Reads and commands on cards apply the expiration self-heal: a card whose
// expiration date has passed is switched to EXPIRED and the correction is
// persisted before the operation's own semantics run.
package service
