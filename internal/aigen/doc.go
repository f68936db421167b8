// Package aigen turns a topic or a YouTube link into front/back card pairs
// using a chat model. Two providers are supported, OpenAI (go-openai) and
// Gemini (genai); either can be wrapped in a circuit breaker so a failing
// provider is not hammered while the user retries from the form.
package aigen
