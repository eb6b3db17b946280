// Package provisioner drives the secrets generation pipeline.
//
// A Provisioner runs one generator per device class against a storage backend:
//
//	deployment  generates the root of trust and stores the root bundle
//	ap          derives the Application Processor header from its parameters
//	component   derives a Component header from its parameters
//
// Runs are independent and coordinate only through the stored root bundle.
// Each run reads all of its inputs first and stores its single output last,
// so a failed run never replaces a previous output with a partial one.
//
// The Profile fixes everything the firmware depends on: PIN and token
// iteration counts, the iterated hash construction, the key curve, the guard
// macros and the artifact names. DefaultProfile matches production firmware;
// FastProfile lowers the PIN iteration count for development builds.
//
// Verify re-derives a stored output from its inputs without writing anything.
// SplitRootBundle and RecoverRootBundle escrow the root bundle as Shamir shares.
package provisioner
