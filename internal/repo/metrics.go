// Pool gauges. Scrape-time GaugeFuncs keep the pool counts honest without a
// background refresher; the underlying query is a pair of indexed COUNTs.
package repo

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

var poolMetricsOnce sync.Once

// RegisterPoolMetrics exposes locker-pool occupancy as Prometheus gauges
// backed by the given handle. Safe to call more than once; only the first
// handle wins, which is fine because the process opens a single database.
func RegisterPoolMetrics(db *gorm.DB) {
	poolMetricsOnce.Do(func() {
		prometheus.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "locker_pool_total",
				Help: "Number of lockers provisioned in the pool.",
			}, func() float64 {
				total, _ := countForGauge(db)
				return total
			}),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "locker_pool_free",
				Help: "Number of lockers currently free.",
			}, func() float64 {
				_, free := countForGauge(db)
				return free
			}),
		)
	})
}

func countForGauge(db *gorm.DB) (total, free float64) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	t, f, err := CountLockers(ctx, db)
	if err != nil {
		return 0, 0
	}
	return float64(t), float64(f)
}
