package wire

import (
	"Reclaim/internal/api"
	"Reclaim/internal/api/config"
	"Reclaim/internal/api/handler"
	"Reclaim/internal/job"
	"Reclaim/internal/pkg/cron"
	"Reclaim/internal/pkg/es"
	"Reclaim/internal/pkg/kafka"
	mongopkg "Reclaim/internal/pkg/mongo"
	"Reclaim/internal/repository"
	"Reclaim/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router       *gin.Engine
	DB           *gorm.DB
	KafkaManager *kafka.ConsumerManager
	ViewProducer kafka.ViewProducer
	CronMgr      *cron.Manager
}

func BuildApplication(db *gorm.DB, mongoDB *mongo.Database, cfg *config.Config) (*ApplicationContainer, error) {
	userRepo := repository.NewUserRepo(db)
	itemRepo := repository.NewItemRepo(db)
	convRepo := repository.NewConversationRepo(db)
	itemMetricRepo := repository.NewItemMetricRepo(db)
	userMetricsRepo := repository.NewUserMetricsRepo(db)
	msgRepo := mongopkg.NewMessageRepo(mongoDB)
	itemESRepo := es.NewItemRepo(es.Client)

	viewProducer, err := kafka.NewViewProducer(cfg)
	if err != nil {
		return nil, err
	}

	userService := service.NewUserService(userRepo, itemRepo)
	geocodeService := service.NewGeocodeService(cfg)
	matchService := service.NewMatchService(itemRepo)
	itemService := service.NewItemService(itemRepo, userService, matchService, geocodeService, itemESRepo, viewProducer)
	chatService := service.NewChatService(convRepo, msgRepo, itemRepo, userRepo)

	handlers := &api.HandlersGroup{
		UserHandler: handler.NewUserHandler(userService),
		ItemHandler: handler.NewItemHandler(itemService, matchService),
		ChatHandler: handler.NewChatHandler(chatService),
		WSHandler:   handler.NewWsHandler(chatService),
	}

	router := api.SetupRouter(handlers)

	kafkaMgr, err := kafka.NewConsumerManager(cfg, itemMetricRepo)
	if err != nil {
		return nil, err
	}

	cronMgr := cron.NewCronManager(
		job.NewItemExpireJob(itemRepo, itemESRepo),
		job.NewUserMetricJob(userRepo, userMetricsRepo),
		job.NewChatReconcileJob(convRepo, msgRepo),
	)

	return &ApplicationContainer{
		Router:       router,
		DB:           db,
		KafkaManager: kafkaMgr,
		ViewProducer: viewProducer,
		CronMgr:      cronMgr,
	}, nil
}
