// Package assembler turns ranked chunks into a bounded context window for a
// generation request. Every function is pure and safe for concurrent use.
package assembler
