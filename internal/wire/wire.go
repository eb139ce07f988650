package wire

import (
	"Milestone/internal/api"
	"Milestone/internal/api/config"
	"Milestone/internal/api/handler"
	"Milestone/internal/job"
	"Milestone/internal/pkg/cron"
	"Milestone/internal/pkg/push"
	"Milestone/internal/pkg/ws"
	"Milestone/internal/repository"
	"Milestone/internal/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router  *gin.Engine
	DB      *gorm.DB
	Hub     *ws.Hub
	CronMgr *cron.Manager
}

func BuildApplication(db *gorm.DB, cfg *config.Config) (*ApplicationContainer, error) {
	userRepo := repository.NewUserRepo(db)
	roomRepo := repository.NewRoomRepo(db)

	hub := ws.NewHub()
	notifier := push.NewPushyClient(cfg.Push)

	userService := service.NewUserService(userRepo)
	roomService := service.NewRoomService(roomRepo, userRepo, hub)
	chatService := service.NewChatService(roomService, roomRepo, userRepo, hub, notifier)

	handlers := &api.HandlersGroup{
		UserHandler: handler.NewUserHandler(userService),
		ChatHandler: handler.NewChatHandler(roomService),
		WSHandler:   handler.NewWsHandler(hub, chatService),
	}

	router := api.SetupRouter(handlers)

	cronMgr := cron.NewCronManager(job.NewRoomActivityJob(roomRepo, hub))

	return &ApplicationContainer{
		Router:  router,
		DB:      db,
		Hub:     hub,
		CronMgr: cronMgr,
	}, nil
}
