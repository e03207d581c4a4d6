package entry

// WithSignature returns a copy of e with its signature bytes filled in.
// The id is unchanged (signature bytes are excluded from the digest), so
// this never needs to recompute it. Used by the transaction package once it
// has signed e.ID()'s bytes.
func (e *Entry) WithSignature(signature []byte) *Entry {
	clone := *e
	clone.sig.Signature = signature
	return &clone
}
