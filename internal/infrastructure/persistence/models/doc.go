// Package models contains GORM persistence models that map to database tables.
// Domain types stay free of ORM tags; each model converts with ToDomain and a
// FromDomain constructor.
//
//   - base.go: identity, timestamp and version columns
//   - ledger.go: accounts, payments, cashouts and the account movement journal
//   - outbox.go: transactional outbox rows
package models
