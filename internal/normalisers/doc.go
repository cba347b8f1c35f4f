// Package normalisers turns formatted documents into plain text before
// chunking. Each normaliser handles a set of file extensions; a Source
// applies them to the documents of any DocumentSource.
package normalisers
