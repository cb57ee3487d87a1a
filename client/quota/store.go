package quota

import (
	"fmt"

	"gorm.io/gorm"
)

// The usage record is a singleton row in the local DB.
const usageRecordID = 1

// DbStore persists the usage record in the local sqlite DB. Update runs the
// read-modify-write inside one transaction so that concurrent tably processes
// can't lose increments.
type DbStore struct {
	db *gorm.DB
}

func NewDbStore(db *gorm.DB) *DbStore {
	return &DbStore{db: db}
}

func getRecord(tx *gorm.DB) (UsageRecord, error) {
	var records []UsageRecord
	result := tx.Where("id = ?", usageRecordID).Limit(1).Find(&records)
	if result.Error != nil {
		return UsageRecord{}, fmt.Errorf("failed to read usage record: %w", result.Error)
	}
	if len(records) == 0 {
		return UsageRecord{}, nil
	}
	return records[0], nil
}

func (s *DbStore) Get() (UsageRecord, error) {
	return getRecord(s.db)
}

func (s *DbStore) Update(apply func(UsageRecord) UsageRecord) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		rec, err := getRecord(tx)
		if err != nil {
			return err
		}
		updated := apply(rec)
		updated.ID = usageRecordID
		if err := tx.Save(&updated).Error; err != nil {
			return fmt.Errorf("failed to persist usage record: %w", err)
		}
		return nil
	})
}

func (s *DbStore) Reset() error {
	result := s.db.Where("id = ?", usageRecordID).Delete(&UsageRecord{})
	if result.Error != nil {
		return fmt.Errorf("failed to reset usage record: %w", result.Error)
	}
	return nil
}

// MemStore keeps the usage record in memory. Used by tests and anywhere a
// throwaway tracker is needed.
type MemStore struct {
	Record UsageRecord
	// When set, every operation fails with this error. Lets tests exercise the
	// swallow-storage-failures path.
	Err error
}

func (s *MemStore) Get() (UsageRecord, error) {
	if s.Err != nil {
		return UsageRecord{}, s.Err
	}
	return s.Record, nil
}

func (s *MemStore) Update(apply func(UsageRecord) UsageRecord) error {
	if s.Err != nil {
		return s.Err
	}
	s.Record = apply(s.Record)
	return nil
}

func (s *MemStore) Reset() error {
	if s.Err != nil {
		return s.Err
	}
	s.Record = UsageRecord{}
	return nil
}
