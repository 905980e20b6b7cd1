// Package domain defines the bot's core types: user profiles, logged
// entries, derived daily aggregates and the shared error taxonomy. It is
// storage- and transport-agnostic; other packages depend on it, never the
// other way around.
package domain
