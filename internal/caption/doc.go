// Package caption turns a decoded image into a one-line description.
//
// Two backends are provided: Gemini through google.golang.org/genai, and a
// local llama.cpp server running a multimodal model. Both take the fixed
// decoding parameters from the pipeline and return plain text; the pipeline
// worker decides what an empty caption means.
package caption
