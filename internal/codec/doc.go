// Package codec implements the event-log wire format: canonical JSON
// encoding, BLAKE3 content hashing, and the tab-delimited line layout
// described in the repository's format document.
//
// Canonical JSON here follows RFC 8785 in spirit (recursive key sort over
// UTF-16 code units, no HTML escaping, NFC-normalized strings) but, unlike a
// strict RFC 8785 encoder, permits JSON numbers and null: event payloads are
// open user data (titles, sizes, urgency scores) rather than a closed
// concept-action schema.
package codec
