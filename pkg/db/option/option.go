package option

import (
	"fmt"

	"gorm.io/gorm"
)

// QueryOption mutates a gorm statement before execution.
type QueryOption interface {
	Apply(*gorm.DB) *gorm.DB
}

type Operator string

const (
	LT   Operator = "<"
	LIKE Operator = "LIKE"
)

type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

type conditionOption struct {
	cond Condition
}

func (o conditionOption) Apply(db *gorm.DB) *gorm.DB {
	return db.Where(fmt.Sprintf("%s %s ?", o.cond.Field, o.cond.Operator), o.cond.Value)
}

func ApplyOperator(cond Condition) QueryOption {
	return conditionOption{cond: cond}
}

type orderOption struct {
	clause string
}

func (o orderOption) Apply(db *gorm.DB) *gorm.DB {
	return db.Order(o.clause)
}

// WithOrder appends an ORDER BY clause, e.g. "created_at DESC".
func WithOrder(clause string) QueryOption {
	return orderOption{clause: clause}
}

type preloadOption struct {
	association string
}

func (o preloadOption) Apply(db *gorm.DB) *gorm.DB {
	return db.Preload(o.association)
}

// WithPreload eager-loads the named association.
func WithPreload(association string) QueryOption {
	return preloadOption{association: association}
}

type limitOption struct {
	limit int
}

func (o limitOption) Apply(db *gorm.DB) *gorm.DB {
	return db.Limit(o.limit)
}

func WithLimit(limit int) QueryOption {
	return limitOption{limit: limit}
}
