// Package assist implements the AI coding assistant behind the IDE's chat
// panel and inline completion.
//
// A Provider turns a prompt into text. Two providers exist: Gemini, called
// over its REST API, and any OpenAI-compatible Chat Completions backend via
// the openai-go SDK. Service adds prompt construction, metrics, and debug
// logging; Handler exposes POST /chat and POST /autocomplete with the
// response shapes the IDE front end expects.
package assist
