// Package flow contains the creation-flow controller: the state machine
// behind the manual deck-creation screen. It decides which card is shown,
// keeps the visible card in sync with the draft cache, and guards
// destructive actions behind a single active dialog.
package flow
