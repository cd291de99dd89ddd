package cron

import (
	"Reclaim/internal/job"
	log "log/slog"

	"github.com/robfig/cron/v3"
)

type Manager struct {
	engine           *cron.Cron
	itemExpireJob    *job.ItemExpireJob
	userMetricJob    *job.UserMetricJob
	chatReconcileJob *job.ChatReconcileJob
}

func NewCronManager(
	itemExpireJob *job.ItemExpireJob,
	userMetricJob *job.UserMetricJob,
	chatReconcileJob *job.ChatReconcileJob,
) *Manager {
	return &Manager{
		engine:           cron.New(cron.WithSeconds()),
		itemExpireJob:    itemExpireJob,
		userMetricJob:    userMetricJob,
		chatReconcileJob: chatReconcileJob,
	}
}

// RegisterJobs 注册定时任务
func (s *Manager) RegisterJobs() error {
	// 过期清理每小时跑一次，其余每天凌晨
	if _, err := s.engine.AddJob("0 0 * * * *", s.itemExpireJob); err != nil {
		return err
	}
	if _, err := s.engine.AddJob("0 30 2 * * *", s.userMetricJob); err != nil {
		return err
	}
	if _, err := s.engine.AddJob("0 0 3 * * *", s.chatReconcileJob); err != nil {
		return err
	}
	return nil
}

func (s *Manager) Start() {
	log.Info("Cron 定时任务引擎启动")
	s.engine.Start()
}

func (s *Manager) Stop() {
	log.Info("Cron 定时任务引擎停止")
	s.engine.Stop()
}
