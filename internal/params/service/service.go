package service

import (
	"github.com/bitfantasy/groupchange/internal/config"
	"github.com/bitfantasy/groupchange/internal/params/repository"
	"go.uber.org/zap"
)

// Services 服务集合
type Services struct {
	Query   *QueryService
	Rewrite *RewriteService
	Report  *ReportService
}

// NewServices 创建服务集合；日志、指标、改写日志、对象存储由调用方另行注入
func NewServices(repos *repository.Repositories, cfg *config.Config, logger *zap.Logger) *Services {
	query := NewQueryService(repos, cfg.Catalog.Breeds)
	return &Services{
		Query:   query,
		Rewrite: NewRewriteService(repos.Param, repos.Catalog, logger),
		Report:  NewReportService(query),
	}
}
