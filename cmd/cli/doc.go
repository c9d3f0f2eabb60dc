// Package cli constructs the sfaudit command-line interface, wiring the
// Cobra command hierarchy, configuration loader, structured logging, the
// persistent state store, and the audit backend client. It exposes helpers
// to build reusable application instances and to execute the default command
// set as a reusable library.
package cli
