// Package replica runs the replica side of the master handshake.
//
// A node started with a master address dials it once before serving
// clients and walks a fixed sequence:
//
//	Disconnected -> AwaitingPong -> AwaitingFullResync -> Synchronized
//
// PING must be answered with PONG. REPLCONF listening-port, REPLCONF capa
// and PSYNC are then sent back to back, and the single reply that follows
// is read and discarded. The link stays open until Close. No write stream
// is applied afterwards. A failed handshake is not retried.
package replica
