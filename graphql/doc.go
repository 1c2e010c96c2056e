// Package graphql serves GraphQL over HTTP with compiled documents held in a
// query cache.
//
// Compiling a query (parsing it and validating it against the schema) is
// the expensive, deterministic step. The Handler looks up the compiled
// Document for each request's query text in a cache.Cache, compiling it
// with Compiler.Compile on a miss. Syntax and validation errors are part of
// the Document, so a bad query is compiled once and then answered from the
// cache like any other.
//
// Variables are coerced per request, after the cache, and execution is left
// to an Executor supplied by the embedder.
package graphql
