// Package agent implements the support agent orchestration loop: resolve
// the caller's conversation, ask the model, execute any requested tools,
// ask the model again, and persist the outcome.
package agent
