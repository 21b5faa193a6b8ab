package handler

import (
	"relaychat/internal/app/chat"
	"relaychat/internal/configs"
	"relaychat/internal/pkg/limiter"
)

// AppDeps carries the long-lived collaborators shared by every handler.
type AppDeps struct {
	Relay       *chat.Relay
	Config      *configs.AppConfig
	JoinLimiter *limiter.IPRateLimiter
}
