package redisadapter

import "github.com/nickguo/socket.io-redis/pkg/utils"

// newUID returns a fresh per-process node identifier: a short random
// string generated once at adapter construction and reused by every
// namespace facade in the process. Every outbound broadcast carries it
// so a node can recognize and drop its own echoes. A panic here would
// mean the system's CSPRNG is broken, which callers cannot meaningfully
// recover from.
func newUID() string {
	uid, err := utils.Uid2(4)
	if err != nil {
		panic(err)
	}
	return uid
}

// newMUID returns a fresh query correlation identifier, independent of
// the node UID, used to route clients-query responses back to the
// request that triggered them.
func newMUID() string {
	muid, err := utils.Uid2(8)
	if err != nil {
		panic(err)
	}
	return muid
}
