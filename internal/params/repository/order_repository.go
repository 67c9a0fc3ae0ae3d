package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/groupchange/internal/params/entity"
	"gorm.io/gorm"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

type orderInfoRow struct {
	ID           int64
	OrderNo      string
	DateOrder    *time.Time
	Address      string
	CustomerName *string
}

// GetInfo 获取订单概要，订单不存在返回 ErrNotFound
func (r *OrderRepository) GetInfo(ctx context.Context, orderID int64) (*entity.OrderInfo, error) {
	var rows []orderInfoRow
	err := r.db.WithContext(ctx).
		Table("orders o").
		Select("o.id, o.orderno AS order_no, o.dateorder AS date_order, o.adressinstall AS address, co.name AS customer_name").
		Joins("LEFT JOIN customers c ON c.customerid = o.customerid").
		Joins("LEFT JOIN contragents co ON co.contragid = c.contragid").
		Where("o.id = ?", orderID).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}

	row := rows[0]
	info := &entity.OrderInfo{
		ID:           row.ID,
		OrderNumber:  row.OrderNo,
		Address:      row.Address,
		CustomerName: row.CustomerName,
	}
	if row.DateOrder != nil {
		d := row.DateOrder.Format("2006-01-02")
		info.OrderDate = &d
	}
	return info, nil
}
