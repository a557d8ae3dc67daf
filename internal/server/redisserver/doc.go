// Package redisserver serves the respkv command set over RESP2.
//
// Supported commands:
//   - PING, ECHO
//   - SET key value [PX milliseconds], GET key
//   - INFO
//   - REPLCONF, PSYNC (the master side of the replica handshake)
//
// Command names are case-insensitive. Command errors are answered with an
// error reply and the connection stays open; a malformed frame is answered
// with a protocol error and only that connection is closed.
package redisserver
