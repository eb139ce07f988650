package consts

// 推送通知类型，与客户端约定的编号保持一致。
// 本服务目前只发送 NotificationNewMessage，其余编号为客户端契约预留
const (
	NotificationNewCommentPost     = 1
	NotificationNewCommentPostSubs = 2
	NotificationNewPost            = 3
	NotificationNewMessage         = 4
)

const (
	ChatPageSize = 20
)
