// Package itc implements Interval Tree Clocks (Almeida, Baquero & Fonte,
// 2008): a causality-stamp scheme that supports unbounded fork/join of
// replicas without a fixed participant set.
//
// A Stamp pairs an identity tree (the portion of [0, 1) this replica owns)
// with an event tree (the causal history it has recorded). Forking a stamp
// splits the identity in two so a new agent can join the system without
// coordination; joining two stamps reunites their identities and takes the
// pointwise maximum of their event trees. Event stamps order causally via
// Leq, which bones uses both for append validation (parents must be
// causally prior to the event they precede) and as the first tier of the
// last-writer-wins comparator.
package itc
