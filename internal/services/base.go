package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"gorm.io/gorm"
)

// MaxPageSize caps the limit accepted by List.
const MaxPageSize = 200

// ListOptions controls paging, filtering and ordering of a List call.
type ListOptions struct {
	Page     int
	Limit    int
	Filters  map[string]interface{}
	OrderBy  string
	Includes []string
}

// ReadService is the read half of a table: lookups by id and filtered lists.
// Writes go through the workflow services so they can be audited.
type ReadService[T any] interface {
	Get(ctx context.Context, id uint64, includes ...string) (*T, error)
	List(ctx context.Context, opts ListOptions) ([]T, int64, error)
}

type ReadServiceImpl[T any] struct {
	db         *gorm.DB
	modelType  T
	filterable map[string]bool
}

func GormTableName(db *gorm.DB, v any) string {
	return db.NamingStrategy.TableName(reflect.TypeOf(v).Name())
}

// NewReadService creates a reader that only accepts filters on the listed columns.
func NewReadService[T any](db *gorm.DB, modelType T, filterable ...string) ReadService[T] {
	allowed := make(map[string]bool, len(filterable))
	for _, col := range filterable {
		allowed[col] = true
	}
	return &ReadServiceImpl[T]{
		db:         db,
		modelType:  modelType,
		filterable: allowed,
	}
}

// applyIncludes adds preload statements to the query for each include
func (s *ReadServiceImpl[T]) applyIncludes(query *gorm.DB, includes ...string) *gorm.DB {
	for _, include := range includes {
		query = query.Preload(include)
	}
	return query
}

func (s *ReadServiceImpl[T]) Get(ctx context.Context, id uint64, includes ...string) (*T, error) {
	var entity T
	query := s.applyIncludes(s.db.WithContext(ctx), includes...)

	if err := query.First(&entity, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(GormTableName(s.db, s.modelType), id)
		}
		return nil, err
	}
	return &entity, nil
}

func (s *ReadServiceImpl[T]) List(ctx context.Context, opts ListOptions) ([]T, int64, error) {
	var entities []T
	var total int64

	query := s.db.WithContext(ctx).Model(&s.modelType)

	for key, value := range opts.Filters {
		if !s.filterable[key] {
			return nil, 0, invalid(key, "is not a filterable field")
		}
		query = query.Where(fmt.Sprintf("%s = ?", key), value)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = s.applyIncludes(query, opts.Includes...)

	if opts.Limit > MaxPageSize {
		opts.Limit = MaxPageSize
	}
	if opts.Page > 0 && opts.Limit > 0 {
		query = query.Offset((opts.Page - 1) * opts.Limit).Limit(opts.Limit)
	}

	orderBy := opts.OrderBy
	if orderBy == "" {
		orderBy = "id DESC"
	}
	if err := query.Order(orderBy).Find(&entities).Error; err != nil {
		return nil, 0, err
	}

	return entities, total, nil
}
