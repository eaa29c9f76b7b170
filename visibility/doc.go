// Package visibility provides a level-triggered "active" signal driven by
// the host environment's visibility, such as a window regaining focus or a
// process being resumed.
//
// Consumers observe only the current value and its changes. A transition
// that is immediately reversed before a listener runs is still delivered
// as two changes; a Set to the current value is never delivered.
package visibility
