// Package main (cmd/secretgen) is the command line entry point of the device
// secrets pipeline.
//
// A deployment is provisioned in three steps:
//
//	secretgen --store ./build deployment
//	secretgen --store ./build ap
//	secretgen --store ./build component
//
// The first run creates the root bundle; the AP and Component runs read it
// together with their own parameter files and write their firmware headers.
// Each generator run performs exactly one write. `secretgen verify <class>` re-reads an
// output and checks it against its inputs, and `secretgen escrow split|combine`
// moves the root bundle in and out of Shamir shares.
//
// Several --store locations mirror every artifact; reads use the first
// available backend.
package main
