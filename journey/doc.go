// Package journey models the journey graph produced by the journey builder and
// linearizes it into per-node sequence positions.
//
// A journey is a directed graph of Nodes joined by Edges. Exactly one node has
// kind KindEntry; every other node that can be reached from it is assigned a
// sequence number by ComputeSequence. Nodes that cannot be reached from the
// entry node receive no sequence and are never minted.
//
//	seq := journey.ComputeSequence(nodes, edges)
//	if n, ok := seq.Get("email-1"); ok {
//	    fmt.Println("email-1 is step", n)
//	}
//
// Validate performs the structural checks that must pass before any
// identifier is minted for a journey. It returns a *StructuralError.
package journey
