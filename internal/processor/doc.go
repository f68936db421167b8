// Package processor connects the command line to the rest of the program.
// It builds creation sessions from imported files and AI output, exports
// the resulting decks for Anki, and starts the editor and the HTTP server.
package processor
