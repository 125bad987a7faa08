// Package schema validates action configuration documents.
//
// Validation runs on the canonical JSON rendering of a document, before it
// is decoded into typed values, so every violation can be reported with the
// exact path where it occurred:
//
//	actions[2].id: value does not match pattern: ^[A-Za-z0-9_-]+$
//	actions[0].script.steps[1].name: required field is missing
//
// All violations in a document are collected, up to a limit.
package schema
