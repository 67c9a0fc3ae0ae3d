package service

import (
	"context"
	"strings"
	"time"

	"github.com/bitfantasy/groupchange/internal/params/entity"
	"github.com/bitfantasy/groupchange/internal/params/journal"
	"github.com/bitfantasy/groupchange/internal/params/repository"
	"github.com/bitfantasy/groupchange/internal/params/sse"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/bitfantasy/groupchange/internal/params/service"

// BreedRewriteRequest 木材品种批量改写
type BreedRewriteRequest struct {
	OrderID    int64
	Scope      entity.Scope
	TargetCode string
	// SelectedCodes 只改写当前编码在其中的记录；为空表示全部改写
	SelectedCodes []string
	Actor         string
	RequestID     string
}

// ColorRewriteRequest 颜色批量改写
type ColorRewriteRequest struct {
	OrderID     int64
	Scope       entity.Scope
	TargetTitle string
	TargetGroup string
	// SelectedTitles 必填，只改写当前颜色标题在其中的记录
	SelectedTitles []string
	Actor          string
	RequestID      string
}

// RewriteResult 改写结果
type RewriteResult struct {
	// AffectedCount 更新语句命中的行数
	AffectedCount int64 `json:"affected_count"`
	// ChangedCount 取值实际发生变化的记录数
	ChangedCount int64 `json:"changed_count"`
	// UnresolvedCount 类型组内找不到目标编码而保持原值的记录数（仅木材）
	UnresolvedCount int64 `json:"unresolved_count"`
	Candidates      int   `json:"candidates"`
}

// RewriteService 参数批量改写
type RewriteService struct {
	params  *repository.ParamRepository
	catalog *repository.CatalogRepository
	logger  *zap.Logger
	metrics *Metrics
	journal *journal.Journal
	hub     *sse.Hub
	tracer  trace.Tracer
}

// NewRewriteService 创建改写服务
func NewRewriteService(params *repository.ParamRepository, catalog *repository.CatalogRepository, logger *zap.Logger) *RewriteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RewriteService{
		params:  params,
		catalog: catalog,
		logger:  logger,
		tracer:  otel.Tracer(tracerName),
	}
}

func (s *RewriteService) SetMetrics(m *Metrics) {
	s.metrics = m
}

func (s *RewriteService) SetJournal(j *journal.Journal) {
	s.journal = j
}

func (s *RewriteService) SetHub(h *sse.Hub) {
	s.hub = h
}

// RewriteBreed 在订单的指定路径下批量改写木材品种
func (s *RewriteService) RewriteBreed(ctx context.Context, req BreedRewriteRequest) (*RewriteResult, error) {
	started := time.Now()
	if scope, err := entity.ParseScope(string(req.Scope)); err == nil {
		req.Scope = scope
	}
	ctx, span := s.tracer.Start(ctx, "RewriteBreed", trace.WithAttributes(
		attribute.Int64("order_id", req.OrderID),
		attribute.String("scope", string(req.Scope)),
		attribute.String("target_code", req.TargetCode),
		attribute.Int("selected", len(req.SelectedCodes)),
	))
	defer span.End()

	s.logger.Debug("Breed rewrite started",
		zap.Int64("order_id", req.OrderID),
		zap.String("scope", string(req.Scope)),
		zap.String("target_code", req.TargetCode),
		zap.Int("selected", len(req.SelectedCodes)),
	)
	res, err := s.rewriteBreed(ctx, req)
	s.finish(span, entity.FamilyBreed, req.Scope, started, res, err)
	if err != nil {
		s.logger.Error("Breed rewrite failed",
			zap.Int64("order_id", req.OrderID),
			zap.String("scope", string(req.Scope)),
			zap.String("target_code", req.TargetCode),
			zap.Strings("selected", req.SelectedCodes),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("Breed rewrite committed",
		zap.Int64("order_id", req.OrderID),
		zap.String("scope", string(req.Scope)),
		zap.String("target_code", req.TargetCode),
		zap.Strings("selected", req.SelectedCodes),
		zap.Int("candidates", res.Candidates),
		zap.Int64("affected", res.AffectedCount),
		zap.Int64("changed", res.ChangedCount),
		zap.Int64("unresolved", res.UnresolvedCount),
	)
	s.record(ctx, &journal.Entry{
		OrderID:         req.OrderID,
		Scope:           req.Scope.Label(),
		Family:          string(entity.FamilyBreed),
		Target:          req.TargetCode,
		Selected:        req.SelectedCodes,
		AffectedCount:   res.AffectedCount,
		ChangedCount:    res.ChangedCount,
		UnresolvedCount: res.UnresolvedCount,
		Actor:           req.Actor,
		RequestID:       req.RequestID,
	})
	return res, nil
}

func (s *RewriteService) rewriteBreed(ctx context.Context, req BreedRewriteRequest) (*RewriteResult, error) {
	if req.OrderID <= 0 {
		return nil, invalidArgument("order_id must be positive")
	}
	scope, err := entity.ParseScope(string(req.Scope))
	if err != nil {
		return nil, invalidArgument("%v", err)
	}
	req.Scope = scope
	if strings.TrimSpace(req.TargetCode) == "" {
		return nil, invalidArgument("target code is required")
	}

	var res RewriteResult
	// 事务开始后不再响应取消，要么执行完要么失败
	ctx = context.WithoutCancel(ctx)
	err = s.params.Transaction(ctx, func(tx *repository.ParamRepository) error {
		records, err := tx.Resolve(ctx, req.OrderID, req.Scope, entity.FamilyBreed)
		if err != nil {
			return err
		}
		candidates := FilterBySelection(records, req.SelectedCodes)

		resolution, err := ResolveBreed(ctx, s.catalog.WithDB(tx.DB()), candidates, req.TargetCode)
		if err != nil {
			return err
		}

		affected, err := tx.Rewrite(ctx, req.Scope, recordIDs(candidates), repository.ValueWrite{
			Family:    entity.FamilyBreed,
			PerRecord: resolution.Assignments,
		})
		if err != nil {
			return err
		}

		res = RewriteResult{
			AffectedCount:   affected,
			ChangedCount:    resolution.Changed,
			UnresolvedCount: int64(len(resolution.Unresolved)),
			Candidates:      len(candidates),
		}
		return nil
	})
	if err != nil {
		return nil, classifyWrite(err)
	}
	return &res, nil
}

// RewriteColor 在订单的指定路径下批量改写颜色
func (s *RewriteService) RewriteColor(ctx context.Context, req ColorRewriteRequest) (*RewriteResult, error) {
	started := time.Now()
	if scope, err := entity.ParseScope(string(req.Scope)); err == nil {
		req.Scope = scope
	}
	ctx, span := s.tracer.Start(ctx, "RewriteColor", trace.WithAttributes(
		attribute.Int64("order_id", req.OrderID),
		attribute.String("scope", string(req.Scope)),
		attribute.String("target_title", req.TargetTitle),
		attribute.String("target_group", req.TargetGroup),
		attribute.Int("selected", len(req.SelectedTitles)),
	))
	defer span.End()

	s.logger.Debug("Color rewrite started",
		zap.Int64("order_id", req.OrderID),
		zap.String("scope", string(req.Scope)),
		zap.String("target_title", req.TargetTitle),
		zap.Int("selected", len(req.SelectedTitles)),
	)
	res, err := s.rewriteColor(ctx, req)
	s.finish(span, entity.FamilyColor, req.Scope, started, res, err)
	if err != nil {
		s.logger.Error("Color rewrite failed",
			zap.Int64("order_id", req.OrderID),
			zap.String("scope", string(req.Scope)),
			zap.String("target_title", req.TargetTitle),
			zap.String("target_group", req.TargetGroup),
			zap.Strings("selected", req.SelectedTitles),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("Color rewrite committed",
		zap.Int64("order_id", req.OrderID),
		zap.String("scope", string(req.Scope)),
		zap.String("target_title", req.TargetTitle),
		zap.String("target_group", req.TargetGroup),
		zap.Strings("selected", req.SelectedTitles),
		zap.Int("candidates", res.Candidates),
		zap.Int64("affected", res.AffectedCount),
		zap.Int64("changed", res.ChangedCount),
	)
	s.record(ctx, &journal.Entry{
		OrderID:       req.OrderID,
		Scope:         req.Scope.Label(),
		Family:        string(entity.FamilyColor),
		Target:        req.TargetTitle,
		TargetGroup:   req.TargetGroup,
		Selected:      req.SelectedTitles,
		AffectedCount: res.AffectedCount,
		ChangedCount:  res.ChangedCount,
		Actor:         req.Actor,
		RequestID:     req.RequestID,
	})
	return res, nil
}

func (s *RewriteService) rewriteColor(ctx context.Context, req ColorRewriteRequest) (*RewriteResult, error) {
	if req.OrderID <= 0 {
		return nil, invalidArgument("order_id must be positive")
	}
	scope, err := entity.ParseScope(string(req.Scope))
	if err != nil {
		return nil, invalidArgument("%v", err)
	}
	req.Scope = scope
	if req.TargetTitle == "" || req.TargetGroup == "" {
		return nil, invalidArgument("target color title and group are required")
	}
	if len(req.SelectedTitles) == 0 {
		return nil, invalidArgument("selected old colors are required")
	}

	var res RewriteResult
	ctx = context.WithoutCancel(ctx)
	err = s.params.Transaction(ctx, func(tx *repository.ParamRepository) error {
		records, err := tx.Resolve(ctx, req.OrderID, req.Scope, entity.FamilyColor)
		if err != nil {
			return err
		}
		candidates := FilterBySelection(records, req.SelectedTitles)

		resolution, err := ResolveColor(ctx, s.catalog.WithDB(tx.DB()), candidates, req.TargetTitle, req.TargetGroup)
		if err != nil {
			return err
		}

		affected, err := tx.Rewrite(ctx, req.Scope, recordIDs(candidates), repository.ValueWrite{
			Family: entity.FamilyColor,
			Shared: resolution.ColorID,
		})
		if err != nil {
			return err
		}

		res = RewriteResult{
			AffectedCount: affected,
			ChangedCount:  resolution.Changed,
			Candidates:    len(candidates),
		}
		return nil
	})
	if err != nil {
		return nil, classifyWrite(err)
	}
	return &res, nil
}

func (s *RewriteService) finish(span trace.Span, family entity.Family, scope entity.Scope, started time.Time, res *RewriteResult, err error) {
	s.metrics.observe(family, scope, started, res, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcomeOf(err))
		return
	}
	span.SetAttributes(
		attribute.Int64("affected_count", res.AffectedCount),
		attribute.Int64("changed_count", res.ChangedCount),
	)
}

// record 写改写日志并广播；失败只记日志，不影响已提交的改写
func (s *RewriteService) record(ctx context.Context, entry *journal.Entry) {
	if s.journal != nil {
		if err := s.journal.Append(context.WithoutCancel(ctx), entry); err != nil {
			s.logger.Warn("Append rewrite journal failed", zap.Int64("order_id", entry.OrderID), zap.Error(err))
		}
	}
	if s.hub != nil {
		s.hub.PublishRewrite(entry)
	}
}

// Recent 订单最近的改写记录；未配置 Redis 时返回空列表
func (s *RewriteService) Recent(ctx context.Context, orderID int64, limit int) ([]journal.Entry, error) {
	if s.journal == nil {
		return []journal.Entry{}, nil
	}
	return s.journal.Recent(ctx, orderID, limit)
}
