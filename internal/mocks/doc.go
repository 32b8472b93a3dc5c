// Package mocks provides hand-written test doubles for the interfaces the
// services depend on. Each mock records its calls and can be scripted with
// either fixed return values or a function override.
package mocks
