// Package ollama implements llm.Provider against a local Ollama server.
//
// Completions go through the server's OpenAI-compatible surface
// (/v1/completions, legacy prompt/choices shape); model management
// (pull, native tags) uses the /api endpoints. Everything assumes a
// single local server, so the client carries no API key by default.
package ollama
