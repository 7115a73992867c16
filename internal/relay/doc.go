// Package relay moves envelopes between raven daemons.
//
// A daemon runs two accept loops. The [RemoteListener] takes one transfer
// envelope per connection from peers and files it in the mailbox. The
// [LocalListener] takes one control request per connection from the rv
// front-end, hands it to the [Dispatcher], and answers with exactly one
// reply. [Client] is the front-end side of that exchange.
//
// Every connection carries a single envelope: the writer half-closes its
// side and the reader consumes everything up to end-of-stream before
// decoding. Connections are handled on a bounded pool, so a saturated
// listener stops accepting until a handler finishes.
package relay
