package service

import (
	"context"
	"time"

	"github.com/d60-Lab/tradetok/internal/durable"
	"github.com/d60-Lab/tradetok/internal/model"
)

// Limit 每月上传上限
type Limit struct {
	N         int
	Unbounded bool
}

// Allows 已上传 count 件时能否再上传
func (l Limit) Allows(count int) bool {
	return l.Unbounded || count < l.N
}

// PlanLimit Basic 10，Standard 30，Premium 不限，未知套餐为 0
func PlanLimit(plan model.Plan) Limit {
	switch plan {
	case model.PlanBasic:
		return Limit{N: 10}
	case model.PlanStandard:
		return Limit{N: 30}
	case model.PlanPremium:
		return Limit{Unbounded: true}
	}
	return Limit{}
}

// MonthToken YYYY-MM
func MonthToken(t time.Time) string { return t.Format("2006-01") }

// UploadService 按自然月计数的上传额度
type UploadService struct {
	uploads *durable.RecordMap[model.UploadRecord]
	rt      Runtime
}

func NewUploadService(uploads *durable.RecordMap[model.UploadRecord], rt Runtime) *UploadService {
	return &UploadService{uploads: uploads, rt: rt}
}

// GetCount 本月已上传数；记录属于其他月份时为 0
func (s *UploadService) GetCount(ctx context.Context, userID string) (n int, err error) {
	ctx, done := observe(ctx, "uploads", "get_count")
	defer func() { done(err) }()

	if err = s.rt.Delay.Wait(ctx, latencyUploads); err != nil {
		return 0, err
	}
	rec, ok, err := s.uploads.Get(ctx, userID)
	if err != nil || !ok {
		return 0, err
	}
	if rec.Month != MonthToken(s.rt.Now()) {
		return 0, nil
	}
	return rec.Count, nil
}

// Increment 同月 +1，跨月重置为 1
func (s *UploadService) Increment(ctx context.Context, userID string) (err error) {
	ctx, done := observe(ctx, "uploads", "increment")
	defer func() { done(err) }()

	if userID == "" {
		return invalid("user id is required")
	}

	unlock := s.rt.Locks.Lock("upload:" + userID)
	defer unlock()

	if err = s.rt.Delay.Wait(ctx, latencyUploads); err != nil {
		return err
	}
	month := MonthToken(s.rt.Now())
	_, err = s.uploads.Update(ctx, userID, func(cur model.UploadRecord, ok bool) (model.UploadRecord, error) {
		if ok && cur.Month == month {
			cur.Count++
			return cur, nil
		}
		return model.UploadRecord{Count: 1, Month: month}, nil
	})
	return err
}
