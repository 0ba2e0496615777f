package repository

import (
	"edu_copilot_backend/internal/model"

	"gorm.io/gorm"
)

type ProfileRepository struct {
	DB *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{DB: db}
}

func (r *ProfileRepository) Create(p *model.StudentProfile) error {
	return r.DB.Create(p).Error
}

func (r *ProfileRepository) FindByUserID(userID uint) (*model.StudentProfile, error) {
	var p model.StudentProfile
	err := r.DB.Where("user_id = ?", userID).First(&p).Error
	return &p, err
}

func (r *ProfileRepository) FindByID(id string) (*model.StudentProfile, error) {
	var p model.StudentProfile
	err := r.DB.Where("id = ?", id).First(&p).Error
	return &p, err
}

func (r *ProfileRepository) Update(p *model.StudentProfile) error {
	return r.DB.Save(p).Error
}

// ListAll 分批读取全部档案，供定时预热使用
func (r *ProfileRepository) ListAll(batch int, fn func([]model.StudentProfile) error) error {
	var profiles []model.StudentProfile
	return r.DB.Model(&model.StudentProfile{}).FindInBatches(&profiles, batch, func(tx *gorm.DB, _ int) error {
		return fn(profiles)
	}).Error
}
