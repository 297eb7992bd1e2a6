package task

// Encoder is the contract of the external payload encoder/decoder the
// core consumes but never implements (spec §6). The core accepts this
// interface only at its boundary, via pool.WithEncoder and
// pool.Pool.SubmitValue; the dispatch/registry/queue machinery never
// imports it, preserving the guarantee that the core treats payloads as
// opaque bytes.
type Encoder interface {
	// Encodable reports whether v can be turned into wire bytes at all
	// (e.g. it rejects functions, channels, and other non-serializable
	// values) before a task is ever admitted.
	Encodable(v any) bool
	Encode(v any) ([]byte, error)
	Decode(b []byte, out any) error
}
