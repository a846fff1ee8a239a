// Package userstore persists the durable encrypted provider credential per
// phone number on PostgreSQL. The upsert is a single statement against the
// unique phone constraint, so concurrent logins for one phone can never
// produce two records.
package userstore
