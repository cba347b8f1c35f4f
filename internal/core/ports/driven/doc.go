// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - EmbeddingService: Maps text to a fixed-length vector (Ollama, OpenAI)
//   - Chunker: Splits document text into overlapping token windows
//   - VectorIndex: Stores vectors and answers k-nearest-neighbour queries
//   - IndexStore: Persists and loads the paired vector/metadata artifacts
//   - DocumentSource: Supplies the corpus as (source id, text) pairs
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - BuildReportStore: Build history. Without it, reports are only logged.
//   - KVStore: Backs the embedding cache. Without it, every call hits the provider.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or postprocessor package
package driven
