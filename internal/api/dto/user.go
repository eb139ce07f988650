package dto

// RegisterReq 注册请求体
type RegisterReq struct {
	Username   string `json:"username" binding:"required,min=3,max=50"`
	Password   string `json:"password" binding:"required,min=6,max=64"`
	Name       string `json:"name" binding:"required,max=50"`
	Lastname   string `json:"lastname" binding:"max=50"`
	PushyToken string `json:"pushy_token"`
}

// LoginReq 登录请求体
type LoginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdatePushTokenReq 更新设备推送凭证
type UpdatePushTokenReq struct {
	PushyToken string `json:"pushy_token" binding:"required"`
}

// UserDTO 用户信息响应
type UserDTO struct {
	ID        uint64 `json:"id"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	Lastname  string `json:"lastname"`
	AvatarURL string `json:"avatarUrl"`
}

// LoginResp 登录响应
type LoginResp struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}
