// Package rag provides document chunking, an in-memory vector store,
// and a retriever that turns a query into a context block for prompts.
// It exists so agents can be grounded on local notes without any
// external vector database.
package rag
