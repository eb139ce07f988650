package consts

const (
	TokenBlacklistKey = "auth:token:blacklist:"
)

const (
	RoomCleanLock = "lock:room:clean"
)
