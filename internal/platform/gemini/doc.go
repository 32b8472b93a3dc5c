// Package gemini implements the gemini sync source: it asks Google's Gemini
// API for flashcards about the topic stored as the user's sync descriptor.
//
// Generated cards carry no identifier of their own, so each candidate's
// external id is the SHA-256 of its normalized front text. Repeated syncs on
// the same topic then only add questions the deck does not hold yet.
package gemini
