// Package harness runs line-tree scenarios against the engine.
//
// A scenario builds a contract forest, applies a list of edits and asserts
// on the lines that result. It is the executable form of the engine's
// behavioural contract: quantity propagation, pricing, aggregation and
// sequencing can all be pinned down in a few lines of YAML.
//
// # Scenario Format
//
//	name: desk_quantity
//	description: "Option quantities follow the desk"
//	contract: {id: C1, pricelist_id: retail}
//	catalog_dir: ../catalogs/office
//	lines:
//	  - ref: desk
//	    product: desk
//	    quantity: "2"
//	    options:
//	      - ref: drawer
//	        product: drawer
//	        option_unit_qty: "3"
//	steps:
//	  - op: set_quantity
//	    line: desk
//	    value: "3"
//	assertions:
//	  - type: field
//	    line: drawer
//	    field: quantity
//	    equals: "9"
//
// Lines created without a ref, such as catalog default options, are named
// after their parent and product ("desk/drawer").
//
// # Assertion Types
//
//   - field: a line field equals a value; decimals compare numerically
//   - order: all lines in sequence order match a ref list
//   - count: number of lines, or of a line's direct options
//   - error: a step was rejected with an engine error code
//
// # Determinism
//
// Pending ids are promoted with a sequential generator and the forest is
// saved to an in-memory SQLite store and read back before assertions run,
// so results and golden snapshots are identical across runs.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/desk_quantity.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, msg := range result.Errors {
//	    log.Println(msg)
//	}
package harness
