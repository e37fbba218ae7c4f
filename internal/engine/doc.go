// Package engine implements the contractcfg line-tree consistency engine.
//
// The engine owns the line forest of one contract and keeps every derived
// field of every line consistent with the fields it depends on. Callers
// mutate lines through Engine methods; each method runs to completion and
// returns only once all recompute chains have settled.
//
// ARCHITECTURE:
//
// Field Dependency Graph:
// Every derived field is produced by a compute node that declares its inputs
// as (relation, field) pairs, where relation is the line itself, its option
// parent, its direct children or all its descendants. NewDepGraph sorts the
// nodes topologically so producers always run before consumers.
//
// Recompute Flow:
// 1. A mutation writes a field and marks the dependent (node, line) pairs dirty
// 2. The scheduler takes the earliest dirty node in topological order
// 3. Top-down nodes visit shallow lines first, bottom-up nodes deep lines first
// 4. Any output that changed marks its own dependents dirty
// 5. Structural changes finish with a whole-forest sequencing pass
//
// Quantities therefore resolve parent before child and aggregates resolve
// child before parent.
//
// CRITICAL PATTERNS:
//
// Transactional Mutation:
// Every mutating call works on a clone of the forest. The clone replaces the
// committed forest only when the call succeeds, so a failed batch leaves no
// partial tree behind and readers never see intermediate states.
//
// Deterministic Scheduling:
// Ties between lines of equal depth are broken by arena insertion order.
// No randomness, no concurrency, no wall-clock reads.
//
// Bounded Work:
// Option links are checked for cycles and a maximum depth, and each flush is
// limited by a step quota. Every mutating call terminates.
package engine
