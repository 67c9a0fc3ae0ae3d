package service

import (
	"context"
	"errors"

	"github.com/bitfantasy/groupchange/internal/config"
	"github.com/bitfantasy/groupchange/internal/params/entity"
	"github.com/bitfantasy/groupchange/internal/params/repository"
)

// QueryService 只读查询：目录、订单概要、订单当前使用的取值。
// 每次调用独立读取，不与改写事务协调。
type QueryService struct {
	repos  *repository.Repositories
	breeds []config.BreedOption
}

func NewQueryService(repos *repository.Repositories, breeds []config.BreedOption) *QueryService {
	return &QueryService{repos: repos, breeds: breeds}
}

// AvailableBreeds 可选木材品种（静态目录）
func (s *QueryService) AvailableBreeds() []config.BreedOption {
	out := make([]config.BreedOption, len(s.breeds))
	copy(out, s.breeds)
	return out
}

// ColorGroups 可选色组标题
func (s *QueryService) ColorGroups(ctx context.Context) ([]string, error) {
	groups, err := s.repos.Catalog.ListColorGroups(ctx)
	return groups, classifyRead(err)
}

// ColorsByGroup 色组下的颜色标题
func (s *QueryService) ColorsByGroup(ctx context.Context, groupTitle string) ([]string, error) {
	if groupTitle == "" {
		return nil, invalidArgument("group title is required")
	}
	colors, err := s.repos.Catalog.ListColorsByGroup(ctx, groupTitle)
	return colors, classifyRead(err)
}

// OrderInfo 订单概要；订单不存在返回 ErrNotFound
func (s *QueryService) OrderInfo(ctx context.Context, orderID int64) (*entity.OrderInfo, error) {
	info, err := s.repos.Order.GetInfo(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, classifyRead(err)
	}
	return info, nil
}

// UsedValues 订单在指定路径和属性族下正在使用的取值
func (s *QueryService) UsedValues(ctx context.Context, orderID int64, scope entity.Scope, family entity.Family) ([]string, error) {
	counts, err := s.UsedValueCounts(ctx, orderID, scope, family)
	if err != nil {
		return nil, err
	}
	values := make([]string, 0, len(counts))
	for _, c := range counts {
		values = append(values, c.Value)
	}
	return values, nil
}

// UsedValueCounts 同 UsedValues，附带每个取值的记录数
func (s *QueryService) UsedValueCounts(ctx context.Context, orderID int64, scope entity.Scope, family entity.Family) ([]repository.ValueCount, error) {
	counts, err := s.repos.Param.ValueCounts(ctx, orderID, scope, family)
	return counts, classifyRead(err)
}

// Ping 检查数据库连接
func (s *QueryService) Ping(ctx context.Context) error {
	return classifyRead(s.repos.Ping(ctx))
}
