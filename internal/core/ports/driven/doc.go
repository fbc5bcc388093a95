// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): the PDF parser, image captioner, embedding
// and LLM capabilities, the vector store and the document registry storage.
package driven
