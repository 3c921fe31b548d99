// Package store provides SQLite-backed storage implementations.
package store

import "github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/types"

// Compile-time interface compliance checks.
var _ types.SessionStore = (*SessionStore)(nil)
var _ types.MessageStore = (*MessageStore)(nil)
var _ types.EvolutionStore = (*EvolutionStore)(nil)
var _ types.ArtifactStore = (*ArtifactStore)(nil)
var _ types.TacticStore = (*TacticStore)(nil)
var _ types.EvaluationStore = (*EvaluationStore)(nil)
