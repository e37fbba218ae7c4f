// Package forest is the in-memory entity store for contract lines.
//
// A Forest is an arena of lines keyed by LineID. It owns the two identity
// spaces of the system: durable ids (assigned on Promote by an IDGenerator)
// and pending ids ("new-<n>", allocated by the forest Clock for drafts).
//
// Children are never stored on the parent. They are resolved by index
// lookup over the explicit option link, which is what makes Children safe
// to call on lines that were never saved.
//
// The package performs no recomputation. Derived fields are the engine's
// concern; the forest only keeps the shape consistent.
package forest
