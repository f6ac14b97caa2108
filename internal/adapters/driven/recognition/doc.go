// Package recognition holds what the text-recognition and semantic
// extraction adapters share: prompts, lenient parsing of model replies
// and mapping of HTTP failures onto the domain service error classes.
//
// Provider adapters live in subpackages:
//   - gemini: Google Gemini through google.golang.org/genai
//   - openai: any OpenAI-compatible chat completions endpoint
//   - cache: an LRU decorator for TextRecognitionService
package recognition
