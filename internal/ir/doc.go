// Package ir provides the canonical data types for contractcfg.
//
// This package contains type definitions and serialization helpers only.
// All other internal packages import ir; ir imports nothing internal. This
// keeps the line model the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - NO float types for money or quantities - use decimal.Decimal
//   - A Line is a plain billing line; configurable behaviour is attached as
//     an optional *ConfigurableLine capability selected by Kind
//   - Lines reference each other by LineID only, never by pointer
//   - All JSON/YAML tags use snake_case
package ir
