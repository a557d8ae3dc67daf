// Package cmap provides a sharded concurrent map.
//
// Each shard carries its own RWMutex, so writers on different shards do
// not contend. Keys are spread over shards with hash/maphash.
//
//	m := cmap.New[string, net.Conn]()
//	m.Set(id, conn)
//	m.Range(func(id string, c net.Conn) bool { c.Close(); return true })
package cmap
