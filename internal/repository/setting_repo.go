package repository

import (
	"context"

	"salesdesk/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingRepository interface {
	Get(ctx context.Context, key string) (*model.Setting, error)
	All(ctx context.Context) ([]model.Setting, error)
	Upsert(ctx context.Context, setting *model.Setting) error
	Delete(ctx context.Context, key string) error
	SeedDefaults(ctx context.Context, defaults []model.Setting) error
}

type settingRepository struct {
	db *gorm.DB
}

func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepository{db: db}
}

func (r *settingRepository) Get(ctx context.Context, key string) (*model.Setting, error) {
	var setting model.Setting
	if err := GetDB(ctx, r.db).First(&setting, "key = ?", key).Error; err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *settingRepository) All(ctx context.Context) ([]model.Setting, error) {
	var settings []model.Setting
	err := GetDB(ctx, r.db).Order("key asc").Find(&settings).Error
	return settings, err
}

func (r *settingRepository) Upsert(ctx context.Context, setting *model.Setting) error {
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "description", "updated_by", "updated_at"}),
	}).Create(setting).Error
}

func (r *settingRepository) Delete(ctx context.Context, key string) error {
	res := GetDB(ctx, r.db).Where("key = ?", key).Delete(&model.Setting{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SeedDefaults inserts missing keys and leaves existing values untouched.
func (r *settingRepository) SeedDefaults(ctx context.Context, defaults []model.Setting) error {
	if len(defaults) == 0 {
		return nil
	}
	rows := make([]model.Setting, len(defaults))
	copy(rows, defaults)
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}
