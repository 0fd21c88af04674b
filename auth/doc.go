// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides vote token signing, verification and identity helpers.

# Vote Tokens

A vote token is a stateless credential proving that a voter was invited to a
poll before an expiry instant:

	p := auth.NewPayload(email, pollID, time.Now().Add(7*24*time.Hour))
	token, err := auth.Sign(p, secret)

	p, err = auth.Verify(token, secret)

The wire format is the base64url (unpadded) JSON payload, a dot, and the hex
HMAC-SHA256 of the encoded payload:

	eyJlIjoiYUBiLmNvbSIsInEiOiJQMSIsImV4cCI6MTcwMDAwMDAwMDAwMH0.3f9c...

Verify returns one of three distinct errors:

  - ErrMalformedToken: not exactly two non-empty segments
  - ErrBadSignature: signature mismatch (constant-time comparison)
  - ErrMalformedPayload: valid signature but undecodable or incomplete payload

Expiry is not checked by Verify. Callers use Payload.Expired so different
expiry policies can share the same primitive.

# Voter Identity

VoterID hashes the normalized email with SHA-256. It is the uniqueness key
for vote deduplication:

	voterID := auth.VoterID("  A@B.com ") // same as VoterID("a@b.com")

# Admin Keys

ValidateAdminKey compares the X-Admin-Key header against the configured key
in constant time.

# ID Generation

Random hex IDs for poll records:

	id, err := auth.GenerateID(8)  // 16 hex characters

# IP Hashing

For rate limiting keys that never store raw addresses:

	hash := auth.HashIP(ipAddress, salt)

Returns first 8 bytes (16 hex chars) of HMAC-SHA256.
*/
package auth
