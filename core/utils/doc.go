// Package utils provides small conversion helpers for loosely typed record values.
package utils
