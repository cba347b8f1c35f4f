// Package connectors provides document sources for the index builder.
// Each connector knows how to turn one kind of location into an ordered
// list of (source id, text) documents.
package connectors
