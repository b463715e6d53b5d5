// Package notifications delivers run milestones via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Enumerated event types cover run completion, run failure, and
// accumulated warnings; each can be toggled independently so a quiet topic
// only hears about failures.
//
// Extend this package if you need alternative transports; the runner depends
// only on the simple Service interface.
package notifications
