// Package testutil provides test doubles and fixtures shared across the
// audio-transcriber packages.
//
// MockProvider is a testify mock of provider.TranscriptionProvider. Set
// expectations with On("TranscriptWithOptions", ...) as usual, or use
// NewStaticProvider for a provider that always answers the same way.
//
// The fixture helpers write small audio-like payloads into t.TempDir() and
// record which files a provider saw, so tests can assert that staged uploads
// are gone after a request.
package testutil
