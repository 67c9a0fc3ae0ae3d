package service

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/bitfantasy/groupchange/internal/params/repository"
	"github.com/jackc/pgx/v5/pgconn"
)

// 错误分类
var (
	// ErrNotFound 订单不存在
	ErrNotFound = repository.ErrNotFound
	// ErrInvalidArgument 请求参数不合法
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConnectionFailure 数据库不可达，不做自动重试
	ErrConnectionFailure = errors.New("database connection failure")
	// ErrExecutionFailure 改写语句未能提交，事务已回滚
	ErrExecutionFailure = errors.New("rewrite execution failure")
)

func invalidArgument(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// isConnectionError 判断是否为连接层错误（连不上、断开、SQLSTATE 08 类）
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08"
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// classifyRead 读操作的错误归类；非连接错误原样返回
func classifyRead(err error) error {
	if err == nil {
		return nil
	}
	if isConnectionError(err) {
		return fmt.Errorf("%w: %w", ErrConnectionFailure, err)
	}
	return err
}

// classifyWrite 改写事务的错误归类：连接错误以外一律视为执行失败
func classifyWrite(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrInvalidArgument) {
		return err
	}
	if isConnectionError(err) {
		return fmt.Errorf("%w: %w", ErrConnectionFailure, err)
	}
	return fmt.Errorf("%w: %w", ErrExecutionFailure, err)
}

// outcomeOf 错误对应的指标/日志标签
func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrConnectionFailure):
		return "connection_failure"
	case errors.Is(err, ErrExecutionFailure):
		return "execution_failure"
	}
	return "error"
}
