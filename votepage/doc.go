// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package votepage implements the voter-facing flow behind a vote link.

# States

	Loading → Ready | Error
	Ready → AwaitingConfirm (Select)
	AwaitingConfirm → Ready (Cancel)
	AwaitingConfirm → Submitting (Confirm) → Submitted | Error

Selecting an option never submits. Only Confirm calls the backend, once,
and a Confirm racing another one is rejected with ErrInvalidTransition.

A repeat vote ends in the same Submitted view as a first vote. Token
failures and expiry both show MsgInvalidLink.

# Links

ParseVoteURL reads the page address:

	/poll/{id}?token=<token>      token from the Link Issuer
	/poll/{id}?t=<token>          older links
	/poll/{id}?e=<email>          token is requested on Load
	&c=1 | &c=2                   preselects an option

The e parameter may arrive encoded twice, or still holding an unrendered
mail-merge tag; the latter counts as missing.

# Backends

client.Client talks to a running server. Local wires a store, an Issuer
and a Recorder in process.
*/
package votepage
