// Package resolve implements the loadstone load-order resolution engine.
//
// The engine is a pure function from (rule set, installed-mod snapshot) to
// a Report. It performs no I/O, writes no logs, and holds no locks; every
// pass owns its graph and discards it on return, so independent passes may
// run concurrently on separate goroutines.
//
// PIPELINE:
//
// Each pass walks a fixed state machine:
//
//	PENDING → GRAPH_BUILT → (CYCLIC | ACYCLIC) → ORDERED | FAILED
//
//  1. Predicates filter the rule set down to active rules.
//  2. Active ORDER, REQUIRES and PATCH rules become directed
//     must-load-before edges over installed-mod indices. CONFLICT pairs
//     and NEARSTART/NEAREND weights are recorded beside the graph.
//  3. Tarjan SCC decomposition finds circular dependencies. Any cycle
//     fails the pass; conflicts never do.
//  4. A deterministic topological sort produces the final order.
//
// DETERMINISM:
//
// Identical inputs yield byte-identical reports. Ordering decisions use
// only the soft placement weight, the installation index, and the folded
// mod name. No map iteration order, wall clock, or randomness reaches the
// output; the pass token is generated data and excluded from the report
// digest.
package resolve
