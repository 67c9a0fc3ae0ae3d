package entity

import "time"

// 以下实体映射订单配置库的既有表结构，表和列名沿用原库命名。
// 本服务只读取这些表，参数记录只改写取值列。

// Order 订单
type Order struct {
	ID             int64      `json:"id" gorm:"column:id;primaryKey"`
	OrderNo        string     `json:"order_no" gorm:"column:orderno;size:64"`
	DateOrder      *time.Time `json:"date_order" gorm:"column:dateorder"`
	AddressInstall string     `json:"address_install" gorm:"column:adressinstall;size:512"`
	CustomerID     *int64     `json:"customer_id" gorm:"column:customerid"`
}

func (Order) TableName() string {
	return "orders"
}

// Customer 客户，名称保存在对应的往来单位上
type Customer struct {
	CustomerID int64  `gorm:"column:customerid;primaryKey"`
	ContragID  *int64 `gorm:"column:contragid"`
}

func (Customer) TableName() string {
	return "customers"
}

// Contragent 往来单位
type Contragent struct {
	ContragID int64  `gorm:"column:contragid;primaryKey"`
	Name      string `gorm:"column:name;size:256"`
}

func (Contragent) TableName() string {
	return "contragents"
}

// OrderItem 订单行；StuffsetID 非空表示该行属于某个套件
type OrderItem struct {
	ID         int64  `gorm:"column:id;primaryKey"`
	OrderID    int64  `gorm:"column:orderid;index"`
	StuffsetID *int64 `gorm:"column:stuffsetid"`
}

func (OrderItem) TableName() string {
	return "orders_items"
}

// OrderItemAdd 订单行的附加件节点
type OrderItemAdd struct {
	ID          int64 `gorm:"column:id;primaryKey"`
	OrderItemID int64 `gorm:"column:orderitemid;index"`
}

func (OrderItemAdd) TableName() string {
	return "orders_items_adds"
}

// OrderInfo 订单概要（读模型）
type OrderInfo struct {
	ID           int64   `json:"id"`
	OrderNumber  string  `json:"order_number"`
	OrderDate    *string `json:"order_date"`
	Address      string  `json:"address"`
	CustomerName *string `json:"customer_name"`
}
