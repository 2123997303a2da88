package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/storekit/storekit/internal/assetstore"
	"github.com/storekit/storekit/internal/domain"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() {
	loc, _ := time.LoadLocation(a.appConfig.System.Location)
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	_, err := a.sched.AddFunc("@hourly", func() {
		a.SweepOrphanAssets(context.Background())
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}
}

// SweepOrphanAssets reconciles the asset store against the product
// table, removing stored blobs no record points at. Asset writes happen
// before the record exists during create, so a ref is only removed
// after it has been seen unreferenced by two consecutive runs.
func (a *Application) SweepOrphanAssets(ctx context.Context) {
	referenced := map[string]bool{}
	var products []domain.Product
	if err := a.gormDB.WithContext(ctx).Select("file_path", "image_path").Find(&products).Error; err != nil {
		zap.L().Error("orphan sweep: load product refs", zap.Error(err))
		return
	}
	for _, p := range products {
		referenced[p.FilePath] = true
		referenced[p.ImagePath] = true
	}

	next := map[string]bool{}
	removed := 0
	for _, category := range []string{assetstore.CategoryFiles, assetstore.CategoryImages} {
		refs, err := a.assets.List(ctx, category)
		if err != nil {
			zap.L().Error("orphan sweep: list assets", zap.String("category", category), zap.Error(err))
			continue
		}
		for _, ref := range refs {
			if referenced[ref] {
				continue
			}
			if !a.sweepCandidates[ref] {
				next[ref] = true
				continue
			}
			if err := a.assets.Remove(ctx, ref); err != nil {
				zap.L().Warn("orphan sweep: remove failed", zap.String("ref", ref), zap.Error(err))
				continue
			}
			removed++
		}
	}
	a.sweepCandidates = next

	if removed > 0 || len(next) > 0 {
		zap.L().Info("orphan sweep finished",
			zap.Int("removed", removed),
			zap.Int("pending", len(next)))
	}
}
