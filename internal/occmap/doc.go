// Package occmap turns simulator navigability answers into a binary
// occupancy map aligned with a semantic BEV map.
//
// Responsibilities: sampling every lattice cell centre through a
// sim.Simulator, cropping the full array to the semantic map's
// coords_range, and packaging the result as a Record.
// Key types: Builder, Record.
//
// Dependency rule: occmap depends on grid, semmap and sim. Storage and
// rendering live in their own packages and consume Record.
package occmap
