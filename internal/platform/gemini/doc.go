// Package gemini implements generation.Generator on Google's Gemini API.
//
// Prompts are rendered from a text/template set (an embedded default or a
// file named by llm.prompt_template_path) with one named template per
// generation.PromptKind. Transient API failures are retried with exponential
// backoff inside the caller's deadline; safety blocks and empty answers are
// returned immediately so the caller can fall back to its own text.
package gemini
