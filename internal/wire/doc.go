// Package wire encodes and decodes the two envelope families raven speaks.
//
// Transfer envelopes travel between daemons over the network and carry exactly
// one text message ([Text]) or one file ([File]). Control envelopes travel over
// the local control socket between the rv front-end and its daemon: a request
// ([Send] or [SendFile]) is answered by exactly one reply ([OK] or [ErrorReply]).
//
// # Frame Layout
//
// Every envelope is a single self-describing frame:
//
//	"RVN" | version (1) | tag (1) | payload length (uint32 BE) | payload
//
// Payload fields are length-prefixed (uint32 BE) byte strings, except ports which
// are a fixed two-byte big-endian uint16.
//
// # Stream Discipline
//
// A connection carries exactly one envelope in each direction. The sender writes
// the frame and half-closes its side; the receiver reads to end-of-stream with
// [ReadAll] and only then decodes. Connections are never reused.
package wire
