package storage

import (
	"context"
	"fmt"
	"time"

	"cdptour/internal/ctxkeys"
	"cdptour/internal/logger"
	"cdptour/pkg/model"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// TourRun 导览运行记录表
type TourRun struct {
	ID         string    `gorm:"primaryKey;size:36"`
	Tour       string    `gorm:"size:32;index"`
	Role       string    `gorm:"size:64"`
	Outcome    string    `gorm:"size:16;index"`
	LastStep   int
	TotalSteps int
	StartedAt  time.Time
	EndedAt    time.Time `gorm:"index"`
}

// Store 导览历史存储
type Store struct {
	db  *gorm.DB
	log logger.Logger
}

// Open 打开 SQLite 数据库并迁移表结构
func Open(dsn, prefix string, l logger.Logger) (*Store, error) {
	if l == nil {
		l = logger.NewNop()
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{TablePrefix: prefix},
		Logger:         NewGormLogger(l),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", dsn, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB: %w", err)
	}
	// SQLite 单写者
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&TourRun{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	l.Debug("导览历史库已打开", "dsn", dsn)
	return &Store{db: db, log: l}, nil
}

// Close 关闭数据库
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveRun 保存一次导览运行结果，实现 tour.Recorder
func (s *Store) SaveRun(ctx context.Context, rec model.RunRecord) error {
	if rec.RunID == "" {
		return fmt.Errorf("run record without id")
	}
	ctx = ctxkeys.WithTraceID(ctx, rec.RunID)
	row := TourRun{
		ID:         rec.RunID,
		Tour:       string(rec.Tour),
		Role:       rec.Role,
		Outcome:    string(rec.Outcome),
		LastStep:   rec.LastStep,
		TotalSteps: rec.TotalSteps,
		StartedAt:  rec.StartedAt,
		EndedAt:    rec.EndedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("saving run %s: %w", rec.RunID, err)
	}
	return nil
}

// ListRuns 按结束时间倒序列出运行记录，tour 为空时不过滤
func (s *Store) ListRuns(ctx context.Context, tour model.TourType, limit int) ([]model.RunRecord, error) {
	q := s.db.WithContext(ctx).Model(&TourRun{}).Order("ended_at DESC")
	if tour != "" {
		q = q.Where("tour = ?", string(tour))
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []TourRun
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	out := make([]model.RunRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.RunRecord{
			RunID:      r.ID,
			Tour:       model.TourType(r.Tour),
			Role:       r.Role,
			Outcome:    model.Outcome(r.Outcome),
			LastStep:   r.LastStep,
			TotalSteps: r.TotalSteps,
			StartedAt:  r.StartedAt,
			EndedAt:    r.EndedAt,
		})
	}
	return out, nil
}

// CompletedTours 至少完整走完一次的导览
func (s *Store) CompletedTours(ctx context.Context) (map[model.TourType]bool, error) {
	var tours []string
	err := s.db.WithContext(ctx).Model(&TourRun{}).
		Where("outcome = ?", string(model.OutcomeCompleted)).
		Distinct().
		Pluck("tour", &tours).Error
	if err != nil {
		return nil, fmt.Errorf("querying completed tours: %w", err)
	}
	out := make(map[model.TourType]bool, len(tours))
	for _, t := range tours {
		out[model.TourType(t)] = true
	}
	return out, nil
}
