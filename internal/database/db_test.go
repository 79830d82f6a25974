package database

import (
	"testing"

	"salesdesk/internal/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestMigrateSeedsSettingsIdempotently(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if err := db.Model(&model.Setting{}).Where("key = ?", model.SettingInvoicePrefix).Update("value", "ADV").Error; err != nil {
		t.Fatalf("update prefix: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	var count int64
	db.Model(&model.Setting{}).Count(&count)
	if int(count) != len(model.DefaultSettings) {
		t.Fatalf("settings = %d, want %d", count, len(model.DefaultSettings))
	}
	var prefix model.Setting
	if err := db.First(&prefix, "key = ?", model.SettingInvoicePrefix).Error; err != nil {
		t.Fatalf("load prefix: %v", err)
	}
	if prefix.Value != "ADV" {
		t.Fatalf("seed overwrote existing value: %q", prefix.Value)
	}
}
