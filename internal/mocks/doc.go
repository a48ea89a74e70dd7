// Package mocks provides centralized mock implementations for testing.
//
// Each mock implements one interface with a function field per method. A nil
// field falls back to a simple default, usually backed by in-memory data on
// the mock, so tests only override the calls they care about.
//
// Usage:
//
//	import "github.com/phrazzld/nudge/internal/mocks"
//
//	func TestSomething(t *testing.T) {
//	    gen := &mocks.MockGenerator{
//	        GenerateShortMessageFn: func(ctx context.Context, p generation.Prompt) (string, error) {
//	            return "You can do it!", nil
//	        },
//	    }
//
//	    // Use the mock in your test...
//	}
//
// When adding a new mock to this package:
//  1. Create a new file named after the interface being mocked
//  2. Implement the mock struct with function fields for each interface method
//  3. Document any helper methods or special functionality
package mocks
