package tonefield

import (
	"fmt"

	"github.com/gogpu/tonefield/field"
	"github.com/gogpu/tonefield/internal/kernel"
	"github.com/gogpu/tonefield/internal/parallel"
)

// softwareBackend runs the CPU reference kernels. Workgroups are spread over
// a work-stealing pool; barriers and atomics follow the GPU model.
type softwareBackend struct {
	pool *parallel.WorkerPool
	disp *kernel.Dispatcher
	prec field.Precision
}

func newSoftwareBackend() *softwareBackend {
	return &softwareBackend{}
}

func (s *softwareBackend) Name() string { return BackendSoftware }

func (s *softwareBackend) Init(cfg BackendConfig) error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("tonefield: invalid size %dx%d", cfg.Width, cfg.Height)
	}
	pool := parallel.NewWorkerPool(cfg.Workers)
	disp, err := kernel.NewDispatcher(pool, cfg.WorkgroupSize)
	if err != nil {
		pool.Close()
		return err
	}
	s.Close()
	s.pool, s.disp, s.prec = pool, disp, cfg.Precision

	Logger().Debug("software backend ready",
		"workers", pool.Workers(),
		"workgroup", cfg.WorkgroupSize,
		"precision", cfg.Precision.String())
	return nil
}

func (s *softwareBackend) Close() {
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
	s.disp = nil
}

// Supports reports true for both precisions: float64 is native on the CPU.
func (s *softwareBackend) Supports(field.Precision) bool { return true }

func (s *softwareBackend) RunPass(p Pass, job *Job) error {
	if s.disp == nil {
		return fmt.Errorf("tonefield: software backend not initialized")
	}
	switch p {
	case PassGenerate:
		kernel.Generate(s.disp, job.Field, job.Params, s.prec)
	case PassExtrema:
		kernel.Extrema(s.disp, job.Field, job.Stats)
	case PassRecalibrate:
		kernel.Recalibrate(s.disp, job.Field, job.Stats)
	case PassHistogram:
		kernel.Histogram(s.disp, job.Field, job.Stats)
	case PassCDF:
		kernel.CDF(job.Stats)
	case PassEqualize:
		kernel.Equalize(s.disp, job.Field, job.Stats)
	default:
		return fmt.Errorf("tonefield: software backend: unknown pass %v", p)
	}
	return nil
}
