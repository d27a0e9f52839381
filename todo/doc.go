// Package todo owns the persisted to-do list.
//
// Persistence model:
//   - One JSON array of strings, indented, rewritten whole on every mutation.
//   - Every operation re-reads the file; nothing is cached between calls.
//   - A missing, blank or malformed file reads as an empty list.
//   - Items are matched byte for byte: no trimming, no case folding.
package todo
