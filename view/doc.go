// Package view renders API payloads as HTML fragments and pages.
//
// Every function is a pure mapping from data to markup: contacts become list items,
// posts become cards, the profile becomes a card, and pending or failed requests
// become alerts. Templates are embedded and escaped by html/template.
//
// # What this package must NOT do
//
//   - Call the API or touch the session.
//   - Write partial output when a template fails.
package view
