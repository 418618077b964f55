package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"cnlistener/internal/models"
)

var (
	ErrUnitNotFound       = errors.New("unit not found")
	ErrUnitAlreadyRunning = errors.New("unit already running")
	ErrUnitNotRunning     = errors.New("unit not running")
)

const (
	StatusRunning = "running"
	StatusStopped = "stopped"
)

// Runnable is a long-lived unit of work. Run blocks until ctx is cancelled
// or the unit fails.
type Runnable interface {
	Run(ctx context.Context) error
}

// UnitConfig controls how a registered unit is supervised.
type UnitConfig struct {
	Name        string
	AutoStart   bool
	AutoRestart bool
	StartDelay  time.Duration // delay before an automatic restart
	StopTimeout time.Duration // how long Stop waits before giving up
}

type unitState struct {
	cfg      UnitConfig
	runnable Runnable
	status   string
	restarts int
	started  time.Time
	cancel   context.CancelFunc
	done     chan struct{}
}

// Supervisor keeps registered units running. A unit that exits on its own
// is restarted after its configured delay; a unit stopped through Stop
// stays down until started again.
type Supervisor struct {
	mu     sync.RWMutex
	units  map[string]*unitState
	logs   *LogBuffer
	logger *zap.Logger
}

func New(logger *zap.Logger) *Supervisor {
	return &Supervisor{
		units:  make(map[string]*unitState),
		logs:   NewLogBuffer(1000),
		logger: logger,
	}
}

// Register adds a unit under the given config. Zero StartDelay and
// StopTimeout get defaults of 1s and 10s respectively.
func (s *Supervisor) Register(cfg UnitConfig, r Runnable) {
	if cfg.StartDelay == 0 {
		cfg.StartDelay = time.Second
	}
	if cfg.StopTimeout == 0 {
		cfg.StopTimeout = 10 * time.Second
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.units[cfg.Name] = &unitState{
		cfg:      cfg,
		runnable: r,
		status:   StatusStopped,
	}
}

func (s *Supervisor) log(level, message, unit string) {
	s.logs.Add(models.LogEntry{
		Timestamp: time.Now().Format(time.RFC3339),
		Level:     level,
		Message:   message,
		Unit:      unit,
	})
}

func (s *Supervisor) Start(name string) error {
	s.mu.Lock()
	state, ok := s.units[name]
	if !ok {
		s.mu.Unlock()
		return ErrUnitNotFound
	}
	if state.status == StatusRunning {
		s.mu.Unlock()
		return ErrUnitAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	state.cancel = cancel
	state.done = make(chan struct{})
	state.status = StatusRunning
	state.started = time.Now()
	s.mu.Unlock()

	s.logger.Info("unit started", zap.String("unit", name))
	s.log("info", fmt.Sprintf("Unit %s started", name), name)

	go s.monitor(ctx, cancel, name, state)

	return nil
}

// monitor runs the unit and handles its exit: status bookkeeping, logging,
// and auto-restart when the exit was not requested through Stop.
func (s *Supervisor) monitor(ctx context.Context, cancel context.CancelFunc, name string, state *unitState) {
	err := state.runnable.Run(ctx)

	// A cancelled context means the exit came from Stop. Record that
	// before cancelling ourselves, which releases anything the run left
	// parked on its context.
	requested := ctx.Err() != nil
	cancel()

	s.mu.Lock()
	state.status = StatusStopped
	restart := state.cfg.AutoRestart && !requested
	if restart {
		state.restarts++
	}
	delay := state.cfg.StartDelay
	done := state.done
	s.mu.Unlock()

	close(done)

	if err != nil && !requested {
		s.logger.Warn("unit exited with error", zap.String("unit", name), zap.Error(err))
		s.log("warning", fmt.Sprintf("Unit %s exited with error: %v", name, err), name)
	} else {
		s.logger.Info("unit exited", zap.String("unit", name))
		s.log("info", fmt.Sprintf("Unit %s exited", name), name)
	}

	if restart {
		time.Sleep(delay)
		s.logger.Info("auto-restarting unit", zap.String("unit", name))
		s.log("info", fmt.Sprintf("Auto-restarting unit %s", name), name)
		if err := s.Start(name); err != nil && !errors.Is(err, ErrUnitAlreadyRunning) {
			s.logger.Error("auto-restart failed", zap.String("unit", name), zap.Error(err))
			s.log("error", fmt.Sprintf("Failed to auto-restart %s: %v", name, err), name)
		}
	}
}

func (s *Supervisor) Stop(name string) error {
	s.mu.Lock()
	state, ok := s.units[name]
	if !ok {
		s.mu.Unlock()
		return ErrUnitNotFound
	}
	if state.status != StatusRunning || state.cancel == nil {
		s.mu.Unlock()
		return ErrUnitNotRunning
	}

	cancel := state.cancel
	state.cancel = nil
	done := state.done
	timeout := state.cfg.StopTimeout
	s.mu.Unlock()

	s.logger.Info("stopping unit", zap.String("unit", name))
	s.log("info", fmt.Sprintf("Stopping unit %s", name), name)

	cancel()

	select {
	case <-done:
		s.log("info", fmt.Sprintf("Unit %s stopped", name), name)
	case <-time.After(timeout):
		s.logger.Warn("unit did not stop in time", zap.String("unit", name))
		s.log("warning", fmt.Sprintf("Unit %s did not stop in time", name), name)
	}

	return nil
}

func (s *Supervisor) Restart(name string) error {
	if err := s.Stop(name); err != nil {
		if errors.Is(err, ErrUnitNotFound) {
			return err
		}
		if !errors.Is(err, ErrUnitNotRunning) {
			return err
		}
	}

	return s.Start(name)
}

// Units returns a snapshot of every registered unit.
func (s *Supervisor) Units() []models.Unit {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Unit, 0, len(s.units))
	for name, state := range s.units {
		uptime := "N/A"
		if state.status == StatusRunning && !state.started.IsZero() {
			uptime = formatDuration(time.Since(state.started))
		}

		result = append(result, models.Unit{
			Name:     name,
			Status:   state.status,
			Restarts: state.restarts,
			Uptime:   uptime,
		})
	}

	return result
}

func (s *Supervisor) Unit(name string) (models.Unit, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.units[name]
	if !ok {
		return models.Unit{}, false
	}

	uptime := "N/A"
	if state.status == StatusRunning && !state.started.IsZero() {
		uptime = formatDuration(time.Since(state.started))
	}

	return models.Unit{
		Name:     name,
		Status:   state.status,
		Restarts: state.restarts,
		Uptime:   uptime,
	}, true
}

func (s *Supervisor) Logs(limit int) []models.LogEntry {
	return s.logs.GetLast(limit)
}

func (s *Supervisor) LogsByUnit(unit string, limit int) []models.LogEntry {
	return s.logs.GetByUnit(unit, limit)
}

func (s *Supervisor) StartAll() {
	s.mu.RLock()
	var toStart []string
	for name, state := range s.units {
		if state.cfg.AutoStart {
			toStart = append(toStart, name)
		}
	}
	s.mu.RUnlock()

	for _, name := range toStart {
		if err := s.Start(name); err != nil {
			s.logger.Error("auto-start failed", zap.String("unit", name), zap.Error(err))
			s.log("error", fmt.Sprintf("Failed to auto-start %s: %v", name, err), name)
		}
	}
}

func (s *Supervisor) StopAll() {
	s.mu.RLock()
	var toStop []string
	for name, state := range s.units {
		if state.status == StatusRunning {
			toStop = append(toStop, name)
		}
	}
	s.mu.RUnlock()

	for _, name := range toStop {
		if err := s.Stop(name); err != nil {
			s.logger.Error("stop failed", zap.String("unit", name), zap.Error(err))
			s.log("error", fmt.Sprintf("Failed to stop %s: %v", name, err), name)
		}
	}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)

	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour

	hours := d / time.Hour
	d -= hours * time.Hour

	minutes := d / time.Minute
	d -= minutes * time.Minute

	seconds := d / time.Second

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
