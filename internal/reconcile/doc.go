// Package reconcile detects stuck nonces for an account and replaces them.
//
// A run reads the confirmed and pending transaction counters, and when they
// differ, sends one zero-value self-transfer per stuck nonce at an escalated
// fee. Replacements go out strictly in ascending nonce order, one at a time,
// each waiting for its first confirmation before the next is signed. A failed
// replacement is recorded and the run moves on to the next nonce.
//
// Node access and key material come in through chain.Client and chain.Signer.
package reconcile
